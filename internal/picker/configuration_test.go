package picker

import (
	"errors"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/solatis/pickerkt/internal/query"
	"github.com/solatis/pickerkt/internal/types"
)

func TestSelectionBounds(t *testing.T) {
	tests := []struct {
		name    string
		sel     Selection
		wantErr bool
	}{
		{"default", DefaultSelection(), false},
		{"min equals max", Selection{Min: 3, Max: 3}, false},
		{"min below max", Selection{Min: 1, Max: 10}, false},
		{"unbounded", Selection{Min: 5}, false},
		{"min zero", Selection{Min: 0, Max: 10}, true},
		{"min negative", Selection{Min: -1}, true},
		{"min above max", Selection{Min: 4, Max: 3}, true},
		{"max negative", Selection{Min: 1, Max: -1}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New().Selection(func(s *Selection) { *s = tt.sel }).Build()
			if tt.wantErr {
				if !errors.Is(err, types.ErrInvalidSelection) {
					t.Fatalf("Build() error = %v, want ErrInvalidSelection", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Build() error = %v", err)
			}
		})
	}
}

func TestPaginationBounds(t *testing.T) {
	if _, err := New().Pagination(func(p *Pagination) { p.PageSize = 0 }).Build(); !errors.Is(err, types.ErrInvalidPagination) {
		t.Errorf("page size 0: error = %v, want ErrInvalidPagination", err)
	}
	if _, err := New().Pagination(func(p *Pagination) { p.PrefetchDistance = -1 }).Build(); !errors.Is(err, types.ErrInvalidPagination) {
		t.Errorf("negative prefetch: error = %v, want ErrInvalidPagination", err)
	}

	cfg := New().MustBuild()
	if cfg.Pagination() != (Pagination{PageSize: 10, PrefetchDistance: 30}) {
		t.Errorf("default pagination = %v", cfg.Pagination())
	}
	if cfg.Selection() != (Selection{Min: 1}) {
		t.Errorf("default selection = %v", cfg.Selection())
	}
}

func TestDuplicateOrdering(t *testing.T) {
	_, err := New().
		OrderBy(types.ColumnDateAdded, types.Descending).
		OrderBy(types.ColumnName, types.Ascending).
		OrderBy(types.ColumnDateAdded, types.Ascending).
		Build()
	if !errors.Is(err, types.ErrDuplicateOrdering) {
		t.Fatalf("Build() error = %v, want ErrDuplicateOrdering", err)
	}
	if want := `there are duplicate orders for column "date_added"`; !strings.Contains(err.Error(), want) {
		t.Errorf("error %q does not name the column", err)
	}
}

func TestOrderByString(t *testing.T) {
	cfg := New().
		OrderBy(types.ColumnDateAdded, types.Descending).
		OrderBy(types.ColumnName, types.Ascending).
		MustBuild()
	if got, want := cfg.OrderByString(), "date_added DESC,_display_name ASC"; got != want {
		t.Errorf("OrderByString() = %q, want %q", got, want)
	}
	if got := New().MustBuild().OrderByString(); got != "" {
		t.Errorf("OrderByString() without orderings = %q", got)
	}
}

func TestDerivedPredicate(t *testing.T) {
	tests := []struct {
		name      string
		builder   *Builder
		wantWhere string
		wantArgs  []string
	}{
		{
			name:      "no filter",
			builder:   New(),
			wantWhere: "",
		},
		{
			name:      "mime types inject an IN clause",
			builder:   New().AllowMimeTypes(types.Jpeg, types.Png),
			wantWhere: "(mime_type IN (?,?))",
			wantArgs:  []string{"image/jpeg", "image/png"},
		},
		{
			name:      "duplicate mime types collapse",
			builder:   New().AllowMimeTypes(types.Png, types.Png, types.Gif, types.Png),
			wantWhere: "(mime_type IN (?,?))",
			wantArgs:  []string{"image/png", "image/gif"},
		},
		{
			name: "user predicate follows the implicit clause",
			builder: New().AllowMimeTypes(types.Jpeg).Where(func(e *query.Expression) {
				e.GreaterThan(query.Col(types.ColumnSize), query.Long(0))
			}),
			wantWhere: "(mime_type IN (?)) AND (_size > 0)",
			wantArgs:  []string{"image/jpeg"},
		},
		{
			name: "user predicate alone",
			builder: New().Where(func(e *query.Expression) {
				e.Like(query.Col(types.ColumnName), query.Quoted("IMG%"))
			}),
			wantWhere: "(_display_name LIKE 'IMG%')",
		},
		{
			name:      "download folder filter",
			builder:   New().DownloadFolderOnly(true),
			wantWhere: "(bucket_id = 540528482)",
		},
		{
			name:      "empty user predicate is dropped",
			builder:   New().AllowMimeTypes(types.Mp3).Where(func(*query.Expression) {}),
			wantWhere: "(mime_type IN (?))",
			wantArgs:  []string{"audio/mpeg"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := tt.builder.Build()
			if err != nil {
				t.Fatalf("Build() error = %v", err)
			}
			if got := cfg.PredicateString(); got != tt.wantWhere {
				t.Errorf("PredicateString() = %q, want %q", got, tt.wantWhere)
			}
			if !equalStrings(cfg.PredicateArguments(), tt.wantArgs) {
				t.Errorf("PredicateArguments() = %q, want %q", cfg.PredicateArguments(), tt.wantArgs)
			}
		})
	}
}

func TestRebuiltDraftSkipsImplicitClause(t *testing.T) {
	d := NewDraft()
	d.MimeTypes = []types.MimeType{types.Jpeg, types.Png}
	d.DownloadFolderOnly = true
	d.Rebuilt = true

	cfg, err := Finalize(d)
	if err != nil {
		t.Fatalf("Finalize() error = %v", err)
	}
	if cfg.PredicateString() != "" {
		t.Errorf("PredicateString() = %q, want empty", cfg.PredicateString())
	}
	if cfg.PredicateArguments() != nil {
		t.Errorf("PredicateArguments() = %q, want nil", cfg.PredicateArguments())
	}
	if !cfg.RebuiltAtLeastOnce() {
		t.Error("RebuiltAtLeastOnce() = false")
	}
}

func TestAsBuilderAppends(t *testing.T) {
	base := New().AllowMimeTypes(types.Jpeg).MustBuild()

	derived, err := base.AsBuilder().Where(func(e *query.Expression) {
		e.Like(query.Col(types.ColumnName), query.Quoted("a%"))
	}).Build()
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if got, want := derived.PredicateString(), "(mime_type IN (?)) AND (_display_name LIKE 'a%')"; got != want {
		t.Errorf("PredicateString() = %q, want %q", got, want)
	}
	if !derived.RebuiltAtLeastOnce() {
		t.Error("derived configuration is not marked rebuilt")
	}
	if base.PredicateString() != "(mime_type IN (?))" {
		t.Errorf("base predicate changed to %q", base.PredicateString())
	}

	again := derived.AsBuilder().MustBuild()
	if again.PredicateString() != derived.PredicateString() {
		t.Errorf("rebuilding twice changed the predicate: %q", again.PredicateString())
	}
}

func TestInCollection(t *testing.T) {
	base := New().AllowMimeGroups(types.GroupVideo).MustBuild()

	all, err := base.InCollection(types.AllFoldersCollectionID)
	if err != nil {
		t.Fatalf("InCollection(WILDCARD) error = %v", err)
	}
	if !all.Equal(base) {
		t.Errorf("InCollection(WILDCARD) = %s, want %s", all, base)
	}

	one, err := base.InCollection("42")
	if err != nil {
		t.Fatalf("InCollection(42) error = %v", err)
	}
	if !query.References(one.Predicate(), types.ColumnCollectionID) {
		t.Errorf("InCollection(42) predicate %q has no bucket filter", one.PredicateString())
	}
	if got := one.PredicateString(); !strings.Contains(got, "(bucket_id = 42)") {
		t.Errorf("PredicateString() = %q", got)
	}
}

func TestForContent(t *testing.T) {
	cfg, err := New().MustBuild().ForContent(7)
	if err != nil {
		t.Fatalf("ForContent() error = %v", err)
	}
	if got, want := cfg.PredicateString(), "(_id = 7)"; got != want {
		t.Errorf("PredicateString() = %q, want %q", got, want)
	}
}

func TestEqualByRenderedPredicate(t *testing.T) {
	flat := New().Where(func(e *query.Expression) {
		e.Equal(query.Col(types.ColumnName), query.Quoted("x"))
		e.Equal(query.Col(types.ColumnSize), query.Long(1))
	}).MustBuild()

	nested := New().Where(func(e *query.Expression) {
		e.Add(query.Where(query.And, func(inner *query.Expression) {
			inner.Equal(query.Col(types.ColumnName), query.Quoted("x"))
		}))
		e.Equal(query.Col(types.ColumnSize), query.Long(1))
	}).MustBuild()

	if flat.PredicateString() != nested.PredicateString() {
		t.Fatalf("renderings differ: %q vs %q", flat.PredicateString(), nested.PredicateString())
	}
	if !flat.Equal(nested) {
		t.Error("Equal() = false for identically rendering predicates")
	}
	if flat.Hash() != nested.Hash() {
		t.Error("Hash() differs for equal configurations")
	}

	other := New().Where(func(e *query.Expression) {
		e.Equal(query.Col(types.ColumnSize), query.Long(2))
	}).MustBuild()
	if flat.Equal(other) {
		t.Error("Equal() = true for different predicates")
	}

	rebuilt := flat.AsBuilder().MustBuild()
	if !flat.Equal(rebuilt) || flat.Hash() != rebuilt.Hash() {
		t.Error("rebuilt flag takes part in equality")
	}
}

func TestFinalizeDoesNotRetainDraft(t *testing.T) {
	d := NewDraft()
	d.MimeTypes = []types.MimeType{types.Gif}
	d.Predicate = query.Where(query.And, func(e *query.Expression) {
		e.GreaterThan(query.Col(types.ColumnSize), query.Long(1))
	})
	cfg := MustFinalize(d)
	before := cfg.PredicateString()

	d.MimeTypes[0] = types.Png
	d.Predicate.LessThan(query.Col(types.ColumnSize), query.Long(5))

	if cfg.PredicateString() != before {
		t.Errorf("predicate changed after draft mutation: %q", cfg.PredicateString())
	}
	if cfg.MimeTypes()[0] != types.Gif {
		t.Errorf("mime types changed after draft mutation: %v", cfg.MimeTypes())
	}

	cfg.MimeTypes()[0] = types.Png
	cfg.Predicate().Add(query.Binary(query.Col(types.ColumnName), query.Equal, query.Quoted("z")))
	if cfg.MimeTypes()[0] != types.Gif || cfg.PredicateString() != before {
		t.Error("accessors expose internal state")
	}
}

func TestPredicateLimits(t *testing.T) {
	deep := query.NewExpression(query.And)
	cur := deep
	for i := 0; i < types.MaxExpressionDepth+1; i++ {
		next := query.NewExpression(query.And)
		cur.Add(next)
		cur = next
	}
	cur.Equal(query.Col(types.ColumnSize), query.Long(1))

	_, err := New().Where(func(e *query.Expression) { e.Add(deep) }).Build()
	if !errors.Is(err, types.ErrExpressionTooDeep) {
		t.Errorf("Build() error = %v, want ErrExpressionTooDeep", err)
	}
}

func TestResultLimit(t *testing.T) {
	if got := New().MustBuild().ResultLimit(); got != 0 {
		t.Errorf("unbounded ResultLimit() = %d", got)
	}
	cfg := New().Selection(func(s *Selection) { s.Max = 25 }).MustBuild()
	if got := cfg.ResultLimit(); got != 25 {
		t.Errorf("ResultLimit() = %d, want 25", got)
	}
}

func TestMustFinalizePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("MustFinalize did not panic on an invalid draft")
		}
	}()
	MustFinalize(Draft{})
}

func TestConfigurationProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("1 <= min <= max builds", prop.ForAll(
		func(min, span int) bool {
			_, err := New().Selection(func(s *Selection) {
				s.Min = min
				s.Max = min + span
			}).Build()
			return err == nil
		},
		gen.IntRange(1, 1000),
		gen.IntRange(0, 1000),
	))

	properties.Property("min < 1 fails", prop.ForAll(
		func(min, max int) bool {
			_, err := New().Selection(func(s *Selection) {
				s.Min = min
				s.Max = max
			}).Build()
			return errors.Is(err, types.ErrInvalidSelection)
		},
		gen.IntRange(-100, 0),
		gen.IntRange(0, 1000),
	))

	properties.Property("min > max fails", prop.ForAll(
		func(min, d int) bool {
			max := 1 + d%(min-1)
			_, err := New().Selection(func(s *Selection) {
				s.Min = min
				s.Max = max
			}).Build()
			return errors.Is(err, types.ErrInvalidSelection)
		},
		gen.IntRange(2, 1000),
		gen.IntRange(0, 1000),
	))

	columns := types.Columns()
	properties.Property("orderings build iff their columns are unique", prop.ForAll(
		func(idx []int) bool {
			b := New()
			seen := map[int]bool{}
			unique := true
			for _, i := range idx {
				if seen[i] {
					unique = false
				}
				seen[i] = true
				b.OrderBy(columns[i], types.Ascending)
			}
			_, err := b.Build()
			if unique {
				return err == nil
			}
			return errors.Is(err, types.ErrDuplicateOrdering)
		},
		gen.SliceOfN(6, gen.IntRange(0, len(columns)-1)),
	))

	known := types.KnownMimeTypes()
	properties.Property("implicit IN clause binds exactly the distinct mime ids", prop.ForAll(
		func(idx []int) bool {
			b := New()
			seen := map[types.MimeType]bool{}
			var want []string
			for _, i := range idx {
				m := known[i]
				b.AllowMimeTypes(m)
				if !seen[m] {
					seen[m] = true
					want = append(want, m.ID())
				}
			}
			cfg, err := b.Build()
			if err != nil {
				return false
			}
			return equalStrings(cfg.PredicateArguments(), want)
		},
		gen.SliceOf(gen.IntRange(0, len(known)-1)).SuchThat(func(v []int) bool { return len(v) > 0 }),
	))

	properties.TestingRun(t)
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

package api

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/solatis/pickerkt/internal/core/auth"
	"github.com/solatis/pickerkt/internal/core/config"
	"github.com/solatis/pickerkt/internal/core/db"
	"github.com/solatis/pickerkt/internal/mediastore"
	"github.com/solatis/pickerkt/internal/picker"
	"github.com/solatis/pickerkt/internal/query"
	"github.com/solatis/pickerkt/internal/types"
)

const secretID = "0190f1b2c3d4e5f60718293a4b5c6d7e"

type fixture struct {
	client *PickerClient
	ids    map[string]int64
}

func newFixture(t *testing.T, mutate func(*config.ServiceConfig), secrets map[string][]byte) *fixture {
	t.Helper()
	ctx := context.Background()

	conn, err := db.Open(ctx, "sqlite://"+filepath.Join(t.TempDir(), "index.db"))
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	_, err = db.MigrateUp(ctx, conn)
	require.NoError(t, err)

	store, err := mediastore.New(conn, zaptest.NewLogger(t))
	require.NoError(t, err)

	ids := make(map[string]int64)
	dir := "/sdcard/dcim/camera"
	for i, name := range []string{"a.jpg", "b.png", "c.jpg", "d.mp4"} {
		mime := types.MimeTypeOfExtension(filepath.Ext(name))
		at := time.Unix(1700000000+int64(i)*60, 0)
		id, err := store.Upsert(ctx, filepath.Join(dir, name), types.Content{
			Name: name, MimeType: mime, Size: types.ByteSize(100 * (i + 1)),
			DateAdded: at, DateModified: at,
			CollectionID: fmt.Sprint(types.BucketID(dir)), CollectionName: "camera",
		})
		require.NoError(t, err)
		ids[name] = id
	}

	cfg := config.DefaultServiceConfig()
	if mutate != nil {
		mutate(cfg)
	}
	signer := auth.NewSigner(secrets, cfg.RequireSignedTokens)
	service, err := NewPickerService(store, signer, cfg)
	require.NoError(t, err)

	server := grpc.NewServer(grpc.ChainUnaryInterceptor(
		UnaryInterceptor(zaptest.NewLogger(t), cfg.RequestTimeout),
		signer.UnaryInterceptor(),
	))
	RegisterPickerServer(server, service)

	listener := bufconn.Listen(1 << 20)
	go server.Serve(listener)
	t.Cleanup(server.Stop)

	cc, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return listener.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { cc.Close() })

	return &fixture{client: NewPickerClient(cc), ids: ids}
}

func request(t *testing.T, fields map[string]any) *structpb.Struct {
	t.Helper()
	s, err := structpb.NewStruct(fields)
	require.NoError(t, err)
	return s
}

func itemNames(t *testing.T, resp *structpb.Struct) []string {
	t.Helper()
	var out []string
	for _, v := range resp.GetFields()["items"].GetListValue().GetValues() {
		out = append(out, v.GetStructValue().GetFields()["name"].GetStringValue())
	}
	return out
}

var imagesByDate = map[string]any{
	"mime_groups": []any{"image"},
	"order_by":    []any{map[string]any{"column": "date_added", "order": "asc"}},
	"pagination":  map[string]any{"page_size": 2},
}

func TestPlanFromSpec(t *testing.T) {
	f := newFixture(t, nil, nil)

	resp, err := f.client.Plan(context.Background(), request(t, map[string]any{"spec": imagesByDate}))
	require.NoError(t, err)
	fields := resp.GetFields()

	assert.Equal(t, "(mime_type IN (?,?,?,?,?,?))", fields["predicate"].GetStringValue())
	assert.Len(t, fields["arguments"].GetListValue().GetValues(), 6)
	assert.Equal(t, "date_added ASC", fields["order_by"].GetStringValue())
	assert.NotEmpty(t, fields["hash"].GetStringValue())
	_, err = types.ParseSessionID(fields["session_id"].GetStringValue())
	assert.NoError(t, err)

	cfg, err := picker.DecodeToken(fields["token"].GetStringValue())
	require.NoError(t, err)
	assert.Equal(t, "date_added ASC", cfg.OrderByString())
}

func TestListContentsPages(t *testing.T) {
	f := newFixture(t, nil, nil)
	ctx := context.Background()

	plan, err := f.client.Plan(ctx, request(t, map[string]any{"spec": imagesByDate}))
	require.NoError(t, err)
	token := plan.GetFields()["token"].GetStringValue()

	first, err := f.client.ListContents(ctx, request(t, map[string]any{"token": token}))
	require.NoError(t, err)
	assert.Equal(t, []string{"a.jpg", "b.png"}, itemNames(t, first))
	next := first.GetFields()["next_key"].GetNumberValue()
	assert.Equal(t, float64(2), next)

	second, err := f.client.ListContents(ctx, request(t, map[string]any{"token": token, "page_key": next}))
	require.NoError(t, err)
	assert.Equal(t, []string{"c.jpg"}, itemNames(t, second))
	_, isNull := second.GetFields()["next_key"].GetKind().(*structpb.Value_NullValue)
	assert.True(t, isNull)

	item := first.GetFields()["items"].GetListValue().GetValues()[0].GetStructValue().GetFields()
	assert.Equal(t, "image/jpeg", item["mime_type"].GetStringValue())
	assert.Equal(t, "100 B", item["size_text"].GetStringValue())
	assert.Equal(t, fmt.Sprint(f.ids["a.jpg"]), item["id"].GetStringValue())
}

func TestListContentsFromMetadata(t *testing.T) {
	f := newFixture(t, nil, nil)
	token, err := picker.EncodeToken(picker.New().AllowMimeTypes(types.Mpeg4).MustBuild())
	require.NoError(t, err)

	ctx := metadata.AppendToOutgoingContext(context.Background(),
		auth.TokenMetadataKey, token,
		SessionMetadataKey, string(types.NewSessionID()))
	resp, err := f.client.ListContents(ctx, request(t, map[string]any{}))
	require.NoError(t, err)
	assert.Equal(t, []string{"d.mp4"}, itemNames(t, resp))
}

func TestListContentsClampsPageSize(t *testing.T) {
	f := newFixture(t, func(c *config.ServiceConfig) { c.MaxPageSize = 1 }, nil)
	resp, err := f.client.ListContents(context.Background(), request(t, map[string]any{"spec": imagesByDate}))
	require.NoError(t, err)
	assert.Len(t, itemNames(t, resp), 1)
}

func TestListCollectionsAndGetContent(t *testing.T) {
	f := newFixture(t, nil, nil)
	ctx := context.Background()
	spec := map[string]any{"mime_groups": []any{"image", "video"}}

	resp, err := f.client.ListCollections(ctx, request(t, map[string]any{"spec": spec}))
	require.NoError(t, err)
	collections := resp.GetFields()["collections"].GetListValue().GetValues()
	require.Len(t, collections, 2)
	all := collections[0].GetStructValue().GetFields()
	assert.Equal(t, types.AllFoldersCollectionID, all["id"].GetStringValue())
	assert.Equal(t, float64(4), all["item_count"].GetNumberValue())

	got, err := f.client.GetContent(ctx, request(t, map[string]any{"spec": spec, "id": float64(f.ids["d.mp4"])}))
	require.NoError(t, err)
	assert.Equal(t, "d.mp4", got.GetFields()["content"].GetStructValue().GetFields()["name"].GetStringValue())
}

func TestSelect(t *testing.T) {
	f := newFixture(t, nil, nil)
	spec := map[string]any{"mime_groups": []any{"image"}, "selection": map[string]any{"max": 2}}
	ids := []any{
		float64(f.ids["d.mp4"]), float64(f.ids["a.jpg"]), "999",
		fmt.Sprint(f.ids["b.png"]), float64(f.ids["c.jpg"]),
	}

	resp, err := f.client.Select(context.Background(), request(t, map[string]any{"spec": spec, "ids": ids}))
	require.NoError(t, err)

	fields := resp.GetFields()
	assert.Equal(t, []string{"a.jpg", "b.png"}, itemNames(t, resp))
	assert.Equal(t, float64(2), fields["count"].GetNumberValue())
	assert.True(t, fields["satisfied"].GetBoolValue())
	assert.Equal(t, []any{"999"}, fields["missing"].GetListValue().AsSlice())
	assert.Equal(t, []any{fmt.Sprint(f.ids["d.mp4"])}, fields["excluded"].GetListValue().AsSlice())
	assert.Equal(t, []any{fmt.Sprint(f.ids["c.jpg"])}, fields["dropped"].GetListValue().AsSlice())
}

func TestErrorCodes(t *testing.T) {
	secrets := map[string][]byte{secretID: bytes.Repeat([]byte{7}, 32)}
	open := newFixture(t, nil, nil)
	signed := newFixture(t, func(c *config.ServiceConfig) { c.RequireSignedTokens = true }, secrets)
	ctx := context.Background()

	plain, err := picker.EncodeToken(picker.New().MustBuild())
	require.NoError(t, err)

	widened := picker.New().AllowMimeTypes(types.Png).Where(func(e *query.Expression) {
		e.Equal(query.Col(types.ColumnName), query.String("'x' OR 1=1"))
	}).MustBuild()
	widenedStruct, err := picker.ToStruct(widened)
	require.NoError(t, err)
	widenedToken, err := picker.EncodeToken(widened)
	require.NoError(t, err)

	tests := []struct {
		name string
		call func() error
		want codes.Code
	}{
		{"no configuration", func() error {
			_, err := open.client.Plan(ctx, request(t, map[string]any{}))
			return err
		}, codes.InvalidArgument},
		{"malformed token", func() error {
			_, err := open.client.Plan(ctx, request(t, map[string]any{"token": "not-a-token"}))
			return err
		}, codes.InvalidArgument},
		{"invalid spec", func() error {
			_, err := open.client.Plan(ctx, request(t, map[string]any{"spec": map[string]any{"selection": map[string]any{"min": 0}}}))
			return err
		}, codes.InvalidArgument},
		{"raw string in configuration", func() error {
			_, err := open.client.ListContents(ctx, request(t, map[string]any{"configuration": widenedStruct.AsMap()}))
			return err
		}, codes.InvalidArgument},
		{"raw string in unsigned token", func() error {
			_, err := open.client.ListContents(ctx, request(t, map[string]any{"token": widenedToken}))
			return err
		}, codes.InvalidArgument},
		{"unsafe list item in spec", func() error {
			_, err := open.client.ListContents(ctx, request(t, map[string]any{"spec": map[string]any{
				"mime_types": []any{"Png"},
				"where":      map[string]any{"column": "_display_name", "op": "in", "value": []any{"x)) OR ((1=1"}},
			}}))
			return err
		}, codes.InvalidArgument},
		{"no results", func() error {
			_, err := open.client.ListContents(ctx, request(t, map[string]any{"spec": map[string]any{"mime_types": []any{"Wav"}}}))
			return err
		}, codes.NotFound},
		{"unknown content", func() error {
			_, err := open.client.GetContent(ctx, request(t, map[string]any{"spec": map[string]any{}, "id": 999}))
			return err
		}, codes.NotFound},
		{"negative page key", func() error {
			_, err := open.client.ListContents(ctx, request(t, map[string]any{"spec": map[string]any{}, "page_key": -1}))
			return err
		}, codes.InvalidArgument},
		{"page key out of range", func() error {
			_, err := open.client.ListContents(ctx, request(t, map[string]any{"spec": map[string]any{}, "page_key": "4294967296"}))
			return err
		}, codes.InvalidArgument},
		{"select without ids", func() error {
			_, err := open.client.Select(ctx, request(t, map[string]any{"spec": map[string]any{}}))
			return err
		}, codes.InvalidArgument},
		{"select with fractional id", func() error {
			_, err := open.client.Select(ctx, request(t, map[string]any{"spec": map[string]any{}, "ids": []any{1.5}}))
			return err
		}, codes.InvalidArgument},
		{"unsigned token when required", func() error {
			_, err := signed.client.Plan(ctx, request(t, map[string]any{"token": plain}))
			return err
		}, codes.Unauthenticated},
		{"spec when signatures required", func() error {
			_, err := signed.client.Plan(ctx, request(t, map[string]any{"spec": map[string]any{}}))
			return err
		}, codes.Unauthenticated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, status.Code(tt.call()))
		})
	}
}

func TestSignedRoundTrip(t *testing.T) {
	secrets := map[string][]byte{secretID: bytes.Repeat([]byte{7}, 32)}
	signer := auth.NewSigner(secrets, true)
	f := newFixture(t, func(c *config.ServiceConfig) { c.RequireSignedTokens = true }, secrets)

	token, err := signer.SignConfiguration(picker.New().AllowMimeTypes(types.Png).MustBuild())
	require.NoError(t, err)

	resp, err := f.client.ListContents(context.Background(), request(t, map[string]any{"token": token}))
	require.NoError(t, err)
	assert.Equal(t, []string{"b.png"}, itemNames(t, resp))
}

func TestToStatus(t *testing.T) {
	assert.Nil(t, toStatus(nil))
	assert.Equal(t, codes.Internal, status.Code(toStatus(fmt.Errorf("disk on fire"))))
	assert.Equal(t, codes.DeadlineExceeded, status.Code(toStatus(fmt.Errorf("query: %w", context.DeadlineExceeded))))
	assert.Equal(t, codes.NotFound, status.Code(toStatus(fmt.Errorf("x: %w", types.ErrCollectionNotFound))))
	assert.Equal(t, codes.Unauthenticated, status.Code(toStatus(auth.ErrInvalidSignature)))
}

func TestIntField(t *testing.T) {
	tests := []struct {
		name    string
		value   *structpb.Value
		want    int64
		wantErr bool
	}{
		{"number", structpb.NewNumberValue(42), 42, false},
		{"decimal string", structpb.NewStringValue("7"), 7, false},
		{"past float precision as string", structpb.NewStringValue("9007199254740993"), 9007199254740993, false},
		{"past int32 as string", structpb.NewStringValue("4294967296"), 4294967296, false},
		{"past float precision as number", structpb.NewNumberValue(1 << 60), 0, true},
		{"fraction", structpb.NewNumberValue(1.5), 0, true},
		{"negative number", structpb.NewNumberValue(-1), 0, true},
		{"negative string", structpb.NewStringValue("-3"), 0, true},
		{"overflowing string", structpb.NewStringValue("99999999999999999999"), 0, true},
		{"bool", structpb.NewBoolValue(true), 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := intField(tt.value, "id")
			if tt.wantErr {
				assert.Equal(t, codes.InvalidArgument, status.Code(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSessionFromMetadata(t *testing.T) {
	id := types.NewSessionID()
	tests := []struct {
		name string
		md   metadata.MD
		want bool
	}{
		{"valid", metadata.Pairs(SessionMetadataKey, string(id)), true},
		{"invalid", metadata.Pairs(SessionMetadataKey, "not-a-uuid"), false},
		{"absent", metadata.MD{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := sessionFromMetadata(metadata.NewIncomingContext(context.Background(), tt.md))
			assert.Equal(t, tt.want, ok)
			if tt.want {
				assert.Equal(t, id, got)
			}
		})
	}
}

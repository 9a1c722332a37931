package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/solatis/pickerkt/internal/core/auth"
	"github.com/solatis/pickerkt/internal/core/config"
	"github.com/solatis/pickerkt/internal/picker"
)

// pickerFlags builds a configuration from a token, a picker file, flags, or
// a picker file with flag overrides.
type pickerFlags struct {
	file               string
	token              string
	mimeTypes          []string
	mimeGroups         []string
	orderBy            []string
	min                int
	max                int
	pageSize           int
	downloadFolderOnly bool
}

func (f *pickerFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&f.file, "picker", "", "picker file (yaml, json or toml)")
	fs.StringVar(&f.token, "token", "", "configuration token, signed or plain")
	fs.StringSliceVar(&f.mimeTypes, "mime", nil, "allowed MIME type (Jpeg or image/jpeg), repeatable")
	fs.StringSliceVar(&f.mimeGroups, "group", nil, "allowed MIME group (image, video, audio, document), repeatable")
	fs.StringSliceVar(&f.orderBy, "order-by", nil, "ordering as column[:asc|desc], repeatable")
	fs.IntVar(&f.min, "min", 0, "minimum selection size")
	fs.IntVar(&f.max, "max", 0, "maximum selection size (0 is unbounded)")
	fs.IntVar(&f.pageSize, "page-size", 0, "results per page")
	fs.BoolVar(&f.downloadFolderOnly, "download-folder-only", false, "restrict results to the download folder")
}

func (f *pickerFlags) configuration(cmd *cobra.Command) (*picker.Configuration, error) {
	if f.token != "" {
		signer, err := cliSigner()
		if err != nil {
			return nil, err
		}
		return signer.OpenConfiguration(f.token)
	}

	var spec picker.Spec
	if f.file != "" {
		var err error
		if spec, err = config.LoadPickerSpec(f.file); err != nil {
			return nil, err
		}
	}

	flags := cmd.Flags()
	if flags.Changed("mime") {
		spec.MimeTypes = f.mimeTypes
	}
	if flags.Changed("group") {
		spec.MimeGroups = f.mimeGroups
	}
	if flags.Changed("order-by") {
		spec.OrderBy = nil
		for _, o := range f.orderBy {
			column, order, _ := strings.Cut(o, ":")
			spec.OrderBy = append(spec.OrderBy, picker.OrderingSpec{Column: column, Order: order})
		}
	}
	if flags.Changed("min") {
		spec.Selection.Min = &f.min
	}
	if flags.Changed("max") {
		spec.Selection.Max = &f.max
	}
	if flags.Changed("page-size") {
		spec.Pagination.PageSize = &f.pageSize
	}
	if flags.Changed("download-folder-only") {
		spec.DownloadFolderOnly = f.downloadFolderOnly
	}
	return spec.Build()
}

// cliSigner signs and verifies with the secrets in the environment. Unsigned
// tokens are accepted.
func cliSigner() (*auth.Signer, error) {
	secrets, err := config.SigningSecrets()
	if err != nil {
		return nil, fmt.Errorf("failed to load signing secrets: %w", err)
	}
	return auth.NewSigner(secrets, false), nil
}

var planFlags pickerFlags

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Build a configuration and print its clause, ordering and token",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := planFlags.configuration(cmd)
		if err != nil {
			return err
		}
		signer, err := cliSigner()
		if err != nil {
			return err
		}
		token, err := signer.SignConfiguration(cfg)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "predicate:  %s\n", cfg.PredicateString())
		fmt.Fprintf(out, "arguments:  [%s]\n", strings.Join(cfg.PredicateArguments(), ", "))
		fmt.Fprintf(out, "order by:   %s\n", cfg.OrderByString())
		fmt.Fprintf(out, "selection:  %s\n", selectionText(cfg.Selection()))
		fmt.Fprintf(out, "page size:  %d (prefetch %d)\n", cfg.Pagination().PageSize, cfg.Pagination().PrefetchDistance)
		fmt.Fprintf(out, "hash:       %x\n", cfg.Hash())
		fmt.Fprintf(out, "token:      %s\n", token)
		return nil
	},
}

func selectionText(s picker.Selection) string {
	if !s.Bounded() {
		return fmt.Sprintf("at least %d", s.Min)
	}
	return fmt.Sprintf("%d to %d", s.Min, s.Max)
}

func init() {
	planFlags.register(planCmd.Flags())
	rootCmd.AddCommand(planCmd)
}

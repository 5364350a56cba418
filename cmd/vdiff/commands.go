package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/dannyswat/vdiff"
	"github.com/fatih/color"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sergi/go-diff/diffmatchpatch"
	"github.com/spf13/cobra"
)

func diffCmd(a *app) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "diff OLD NEW",
		Short: "Compute the delta that turns OLD into NEW",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			oldHTML, newHTML, err := readPair(args[0], args[1])
			if err != nil {
				return err
			}
			delta, err := vdiff.DiffHTML(oldHTML, newHTML, a.cfg.Author, a.opts...)
			if err != nil {
				return err
			}
			data, err := a.marshal(delta)
			if err != nil {
				return err
			}
			if output != "" {
				return os.WriteFile(output, data, 0o644)
			}
			_, err = a.out.Write(data)
			return err
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "write the delta to a file instead of stdout")
	return cmd
}

func patchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "patch BASE DELTA",
		Short: "Apply a delta to the document it was computed against",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			base, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			delta, err := readDelta(args[1])
			if err != nil {
				return err
			}
			patched, err := vdiff.PatchHTML(string(base), delta, a.opts...)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(a.out, patched)
			return err
		},
	}
}

func mergeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "merge BASE DELTA...",
		Short: "Merge concurrent deltas and apply them to BASE",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			base, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			deltas := make([]*vdiff.Delta, 0, len(args)-1)
			for _, path := range args[1:] {
				d, err := readDelta(path)
				if err != nil {
					return err
				}
				deltas = append(deltas, d)
			}

			merged, _, conflicts, err := vdiff.MergeHTML(string(base), deltas, a.opts...)
			if err != nil {
				return err
			}
			if len(conflicts) > 0 {
				for _, c := range conflicts {
					fmt.Fprintf(a.out, "%s %s at %v: %s\n", color.RedString("✗"), c.Type, c.Path, c.Description)
				}
				return fmt.Errorf("%d conflict(s)", len(conflicts))
			}
			_, err = fmt.Fprintln(a.out, merged)
			return err
		},
	}
}

func checkCmd(a *app) *cobra.Command {
	var showMetrics bool

	cmd := &cobra.Command{
		Use:   "check OLD NEW",
		Short: "Verify that patching OLD with diff(OLD, NEW) reproduces NEW",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			oldHTML, newHTML, err := readPair(args[0], args[1])
			if err != nil {
				return err
			}

			reg := prometheus.NewRegistry()
			opts := append([]vdiff.Option{vdiff.WithMetrics(vdiff.NewMetrics(reg))}, a.opts...)

			delta, err := vdiff.DiffHTML(oldHTML, newHTML, a.cfg.Author, opts...)
			if err != nil {
				return err
			}
			patched, err := vdiff.PatchHTML(oldHTML, delta, opts...)
			if err != nil {
				return err
			}
			got, err := normalize(patched)
			if err != nil {
				return err
			}
			want, err := normalize(newHTML)
			if err != nil {
				return err
			}

			if showMetrics {
				if err := a.printMetrics(reg); err != nil {
					return err
				}
			}

			if got != want {
				dmp := diffmatchpatch.New()
				diffs := dmp.DiffMain(want, got, false)
				fmt.Fprintf(a.out, "%s round trip mismatch (want → got):\n%s\n", color.RedString("✗"), dmp.DiffPrettyText(diffs))
				return errors.New("patched document differs from NEW")
			}
			fmt.Fprintf(a.out, "%s round trip ok (%d ops at %d positions)\n",
				color.GreenString("✓"), delta.Patches.Len(), len(delta.Patches))
			return nil
		},
	}

	cmd.Flags().BoolVar(&showMetrics, "metrics", false, "print operation counters")
	return cmd
}

func (a *app) marshal(v any) ([]byte, error) {
	var (
		data []byte
		err  error
	)
	if a.cfg.Indent {
		data, err = json.MarshalIndent(v, "", "  ")
	} else {
		data, err = json.Marshal(v)
	}
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

func (a *app) printMetrics(reg *prometheus.Registry) error {
	families, err := reg.Gather()
	if err != nil {
		return err
	}
	var lines []string
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			label := ""
			for _, lp := range m.GetLabel() {
				label = fmt.Sprintf("{%s=%q}", lp.GetName(), lp.GetValue())
			}
			switch {
			case m.GetCounter() != nil:
				lines = append(lines, fmt.Sprintf("%s%s %g", mf.GetName(), label, m.GetCounter().GetValue()))
			case m.GetHistogram() != nil:
				lines = append(lines, fmt.Sprintf("%s_count%s %d", mf.GetName(), label, m.GetHistogram().GetSampleCount()))
			}
		}
	}
	sort.Strings(lines)
	for _, l := range lines {
		fmt.Fprintln(a.out, color.CyanString(l))
	}
	return nil
}

func readPair(oldPath, newPath string) (string, string, error) {
	oldData, err := os.ReadFile(oldPath)
	if err != nil {
		return "", "", err
	}
	newData, err := os.ReadFile(newPath)
	if err != nil {
		return "", "", err
	}
	return string(oldData), string(newData), nil
}

func readDelta(path string) (*vdiff.Delta, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var d vdiff.Delta
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("decode delta %s: %w", path, err)
	}
	return &d, nil
}

// normalize parses and re-renders a document so both sides compare without
// markup noise.
func normalize(content string) (string, error) {
	root, err := vdiff.ParseHTML(content)
	if err != nil {
		return "", err
	}
	return vdiff.RenderDocument(root)
}

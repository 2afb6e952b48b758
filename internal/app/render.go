package app

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/specialistvlad/terrane/internal/graph"
	"github.com/specialistvlad/terrane/internal/value"
)

// render writes the run outcome to the app's output writer, as a single
// JSON document or as human-readable text.
func (a *App) render(res *graph.Result) error {
	if a.cfg.JSON {
		return a.renderJSON(res)
	}
	return a.renderText(res)
}

// jsonOutput is one output in the structured result. Sensitive values
// are redacted in text rendering only; the structured result is the
// machine-facing surface and carries them verbatim.
type jsonOutput struct {
	Value     any  `json:"value"`
	Sensitive bool `json:"sensitive,omitempty"`
	Known     bool `json:"known"`
}

type jsonResource struct {
	Addr         string         `json:"addr"`
	Attributes   map[string]any `json:"attributes"`
	UnknownAttrs []string       `json:"unknown_attributes,omitempty"`
	Lifecycle    *jsonLifecycle `json:"lifecycle,omitempty"`
}

type jsonLifecycle struct {
	PreventDestroy      bool     `json:"prevent_destroy,omitempty"`
	CreateBeforeDestroy bool     `json:"create_before_destroy,omitempty"`
	IgnoreChanges       []string `json:"ignore_changes,omitempty"`
}

type jsonFailure struct {
	Addr  string   `json:"addr"`
	Error string   `json:"error"`
	Chain []string `json:"chain,omitempty"`
}

type jsonResult struct {
	RunID       string                `json:"run_id"`
	Outputs     map[string]jsonOutput `json:"outputs,omitempty"`
	Resources   []jsonResource        `json:"resources,omitempty"`
	Failures    []jsonFailure         `json:"failures,omitempty"`
	Skipped     []jsonFailure         `json:"skipped,omitempty"`
	Deferred    []string              `json:"deferred,omitempty"`
	Evaluations int64                 `json:"evaluations"`
}

func (a *App) renderJSON(res *graph.Result) error {
	doc := jsonResult{
		RunID:       res.RunID,
		Outputs:     make(map[string]jsonOutput, len(res.Outputs)),
		Evaluations: res.Stats.Total(),
	}

	for name, out := range res.Outputs {
		doc.Outputs[name] = jsonOutput{
			Value:     value.Display(out.Value),
			Sensitive: out.Sensitive,
			Known:     !out.Value.ContainsUnknown(),
		}
	}
	for _, inst := range res.Instances {
		attrs := make(map[string]any, len(inst.Attrs))
		for _, p := range inst.Attrs {
			attrs[p.Key] = value.Display(p.Val)
		}
		jr := jsonResource{
			Addr:         inst.Addr.String(),
			Attributes:   attrs,
			UnknownAttrs: inst.UnknownAttrs,
		}
		if lc := inst.Lifecycle; lc.PreventDestroy || lc.CreateBeforeDestroy || len(lc.IgnoreChanges) > 0 {
			jr.Lifecycle = &jsonLifecycle{
				PreventDestroy:      lc.PreventDestroy,
				CreateBeforeDestroy: lc.CreateBeforeDestroy,
				IgnoreChanges:       lc.IgnoreChanges,
			}
		}
		doc.Resources = append(doc.Resources, jr)
	}
	doc.Failures = jsonFailures(res.Failures)
	doc.Skipped = jsonFailures(res.Skipped)
	for _, p := range res.Deferred {
		doc.Deferred = append(doc.Deferred, p.String())
	}

	enc := json.NewEncoder(a.outW)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

func jsonFailures(fs []graph.Failure) []jsonFailure {
	out := make([]jsonFailure, 0, len(fs))
	for _, f := range fs {
		out = append(out, jsonFailure{Addr: f.Addr.String(), Error: f.Err.Error(), Chain: f.Chain})
	}
	return out
}

func (a *App) renderText(res *graph.Result) error {
	w := a.outW

	if len(res.Outputs) > 0 {
		fmt.Fprintln(w, "Outputs:")
		fmt.Fprintln(w)
		for _, name := range sortedOutputNames(res.Outputs) {
			out := res.Outputs[name]
			if out.Sensitive {
				fmt.Fprintf(w, "  %s = (sensitive)\n", name)
				continue
			}
			fmt.Fprintf(w, "  %s = %s\n", name, displayText(out.Value))
		}
		fmt.Fprintln(w)
	}

	if len(res.Instances) > 0 {
		fmt.Fprintln(w, "Resources:")
		fmt.Fprintln(w)
		for _, inst := range res.Instances {
			fmt.Fprintf(w, "  %s\n", inst.Addr)
			for _, p := range inst.Attrs {
				fmt.Fprintf(w, "    %s = %s\n", p.Key, displayText(p.Val))
			}
		}
		fmt.Fprintln(w)
	}

	if len(res.Failures) > 0 {
		fmt.Fprintln(w, "Failures:")
		fmt.Fprintln(w)
		for _, f := range res.Failures {
			fmt.Fprintf(w, "  ✗ %s: %v\n", f.Addr, f.Err)
		}
		fmt.Fprintln(w)
	}

	if len(res.Skipped) > 0 {
		fmt.Fprintln(w, "Skipped (upstream failure):")
		fmt.Fprintln(w)
		for _, f := range res.Skipped {
			fmt.Fprintf(w, "  - %s (via %s)\n", f.Addr, strings.Join(f.Chain, " -> "))
		}
		fmt.Fprintln(w)
	}

	if len(res.Deferred) > 0 {
		fmt.Fprintln(w, "Deferred (instance count not yet known):")
		fmt.Fprintln(w)
		for _, p := range res.Deferred {
			fmt.Fprintf(w, "  - %s\n", p)
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "Run %s: %d resources, %d outputs, %d failed, %d skipped, %d deferred.\n",
		res.RunID, len(res.Instances), len(res.Outputs), len(res.Failures), len(res.Skipped), len(res.Deferred))
	return nil
}

func sortedOutputNames(outs map[string]graph.Output) []string {
	names := make([]string, 0, len(outs))
	for name := range outs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// displayText renders one value for the text report. Unknown becomes the
// placeholder; everything else renders as JSON, which quotes strings the
// way the language does.
func displayText(v value.Value) string {
	if v.Kind() == value.KindUnknown {
		return "(known after apply)"
	}
	raw, err := json.Marshal(value.Display(v))
	if err != nil {
		return v.String()
	}
	return string(raw)
}

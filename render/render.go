// Package render turns compiled rules into documentation artifacts.
// Neither function here touches working memory or the match-resolve-act
// loop; both are read-only walks over already-compiled rules, grounded
// in the teacher's tools/mermaid.go (graph generation) and
// tools/spec-html.go (Markdown-to-HTML rendering of a rule's doc).
package render

import (
	"fmt"
	"io"

	md "github.com/russross/blackfriday/v2"

	"github.com/arrowhead-labs/ruleflow/core"
)

// Mermaid walks rule's condition tree and writes a Mermaid
// (https://mermaid.js.org/) flowchart: atomic conditions as
// rectangles, composite conditions (All/Any/Not/Exists) as diamonds,
// and accumulators annotated with their kind.
func Mermaid(rule *core.Rule, w io.Writer) error {
	fmt.Fprintf(w, "flowchart TB\n")

	num := 0
	nextID := func() string {
		num++
		return fmt.Sprintf("n%d", num)
	}

	var walk func(c *core.Condition) (string, error)
	walk = func(c *core.Condition) (string, error) {
		if c == nil {
			return "", fmt.Errorf("render: nil condition")
		}

		id := nextID()

		switch {
		case c.BetaTest != nil && c.Type == "":
			fmt.Fprintf(w, "  %s{{\"beta test\"}}\n", id)

		case c.Accumulate != nil:
			kind := "simple"
			if c.Accumulate.Reduce != nil {
				kind = "incremental"
			}
			label := c.Type
			if c.Var != "" {
				label = fmt.Sprintf("%s as %s", c.Type, c.Var)
			}
			fmt.Fprintf(w, "  %s[[\"accumulate(%s): %s\"]]\n", id, kind, label)

		case c.Type != "":
			label := c.Type
			if c.Var != "" {
				label = fmt.Sprintf("%s as %s", c.Type, c.Var)
			}
			fmt.Fprintf(w, "  %s(\"%s\")\n", id, label)

		case c.All != nil:
			fmt.Fprintf(w, "  %s{\"All\"}\n", id)
			for _, child := range c.All {
				childID, err := walk(child)
				if err != nil {
					return "", err
				}
				fmt.Fprintf(w, "  %s --> %s\n", id, childID)
			}

		case c.Any != nil:
			fmt.Fprintf(w, "  %s{\"Any\"}\n", id)
			for _, child := range c.Any {
				childID, err := walk(child)
				if err != nil {
					return "", err
				}
				fmt.Fprintf(w, "  %s --> %s\n", id, childID)
			}

		case c.Not != nil:
			fmt.Fprintf(w, "  %s{\"Not\"}\n", id)
			childID, err := walk(c.Not)
			if err != nil {
				return "", err
			}
			fmt.Fprintf(w, "  %s --> %s\n", id, childID)

		case c.Exists != nil:
			fmt.Fprintf(w, "  %s{\"Exists\"}\n", id)
			childID, err := walk(c.Exists)
			if err != nil {
				return "", err
			}
			fmt.Fprintf(w, "  %s --> %s\n", id, childID)

		default:
			fmt.Fprintf(w, "  %s((\"empty\"))\n", id)
		}

		return id, nil
	}

	root := rule.Condition()
	if root == nil {
		fmt.Fprintf(w, "  n0(\"(uncompiled)\")\n")
		return nil
	}

	ruleID := nextID()
	fmt.Fprintf(w, "  %s[\"%s\"]\n", ruleID, rule.Name)
	childID, err := walk(root)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "  %s --> %s\n", ruleID, childID)

	return nil
}

// DocHTML renders each rule's Markdown Doc field to HTML, in the order
// given, exactly as the teacher's spec-html.go renders a Spec.Doc.
// Rules with no Doc are skipped.
func DocHTML(rules []*core.Rule, w io.Writer) error {
	for _, r := range rules {
		if r.Doc == "" {
			continue
		}
		fmt.Fprintf(w, "<div class=\"ruleDoc\" id=\"%s\">\n", r.Name)
		fmt.Fprintf(w, "<h2>%s</h2>\n", r.Name)
		w.Write(md.Run([]byte(r.Doc)))
		fmt.Fprintf(w, "\n</div>\n")
	}
	return nil
}

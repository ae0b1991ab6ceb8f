// Package prompt builds the system prompt the model sees, including the
// serialized function catalog and worked call examples.
package prompt

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/quillmail/quill/internal/registry"
)

// Compose renders the base prompt followed by the function catalog and
// call-syntax instructions. It is a pure function: identical inputs
// produce byte-identical output.
func Compose(base string, defs []registry.Definition) string {
	var b strings.Builder

	b.WriteString(strings.TrimRight(base, "\n"))
	b.WriteString("\n")

	if len(defs) == 0 {
		return b.String()
	}

	sorted := make([]registry.Definition, len(defs))
	copy(sorted, defs)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	b.WriteString("\n## Available Functions\n\n")
	b.WriteString("You can call functions to complete the user's request. Two call forms are understood.\n\n")

	b.WriteString("Form 1 — inline call:\n\n")
	b.WriteString("functions.search_mail({\"query\": \"invoice\", \"limit\": 5})\n")
	b.WriteString("functions.current_time({})\n\n")

	b.WriteString("Form 2 — structured JSON:\n\n")
	b.WriteString("{\"function_call\": {\"name\": \"search_mail\", \"arguments\": \"{\\\"query\\\": \\\"invoice\\\", \\\"limit\\\": 5}\"}}\n")
	b.WriteString("{\"function_call\": {\"name\": \"current_time\", \"arguments\": \"{}\"}}\n\n")

	b.WriteString("After a call, the result is supplied to you and generation continues; use it to finish your answer. Do not describe the call syntax to the user.\n\n")

	for _, d := range sorted {
		fmt.Fprintf(&b, "### %s\n%s\n", d.Name, d.Description)
		b.WriteString("Parameters: ")
		b.WriteString(schemaJSON(d))
		b.WriteString("\n\n")
	}

	return b.String()
}

// schemaJSON renders a definition's parameter schema as a deterministic
// JSON object (keys sorted, required list in declaration order).
func schemaJSON(d registry.Definition) string {
	names := make([]string, 0, len(d.Parameters))
	for name := range d.Parameters {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString(`{"type": "object", "properties": {`)
	for i, name := range names {
		if i > 0 {
			b.WriteString(", ")
		}
		p := d.Parameters[name]
		fmt.Fprintf(&b, "%s: ", mustJSON(name))
		fmt.Fprintf(&b, `{"type": %s`, mustJSON(p.Type))
		if p.Description != "" {
			fmt.Fprintf(&b, `, "description": %s`, mustJSON(p.Description))
		}
		if len(p.Enum) > 0 {
			fmt.Fprintf(&b, `, "enum": %s`, mustJSON(p.Enum))
		}
		if p.ItemType != "" {
			fmt.Fprintf(&b, `, "items": {"type": %s}`, mustJSON(p.ItemType))
		}
		b.WriteString("}")
	}
	b.WriteString("}")
	if len(d.Required) > 0 {
		fmt.Fprintf(&b, `, "required": %s`, mustJSON(d.Required))
	}
	b.WriteString("}")
	return b.String()
}

func mustJSON(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return `""`
	}
	return string(data)
}

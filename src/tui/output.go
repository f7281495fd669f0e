package tui

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"ci-deployer/src/contracts"
	"ci-deployer/src/jenkins"
)

// Format selects how show commands print.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat validates an --output value.
func ParseFormat(s string) (Format, error) {
	switch f := Format(s); f {
	case FormatText, FormatJSON, FormatYAML:
		return f, nil
	case "":
		return FormatText, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want text, json or yaml)", s)
	}
}

// keyWidth is the right-aligned key column of text output.
const keyWidth = 30

// WriteFields prints an ordered key/value listing. Text output is
// "<key right-aligned to 30> : <value>"; JSON and YAML keep the order.
func WriteFields(w io.Writer, format Format, fields []jenkins.Field) error {
	switch format {
	case FormatJSON:
		var buf bytes.Buffer
		buf.WriteString("{\n")
		for i, f := range fields {
			k, _ := json.Marshal(f.Key)
			v, _ := json.Marshal(f.Value)
			fmt.Fprintf(&buf, "  %s: %s", k, v)
			if i < len(fields)-1 {
				buf.WriteString(",")
			}
			buf.WriteString("\n")
		}
		buf.WriteString("}\n")
		_, err := w.Write(buf.Bytes())
		return err
	case FormatYAML:
		node := &yaml.Node{Kind: yaml.MappingNode}
		for _, f := range fields {
			node.Content = append(node.Content,
				&yaml.Node{Kind: yaml.ScalarNode, Value: f.Key},
				&yaml.Node{Kind: yaml.ScalarNode, Value: f.Value, Style: scalarStyle(f.Value)},
			)
		}
		return encodeYAML(w, node)
	default:
		for _, f := range fields {
			if _, err := fmt.Fprintf(w, "%s : %s\n", PadLeft(f.Key, keyWidth), f.Value); err != nil {
				return err
			}
		}
		return nil
	}
}

// scalarStyle quotes values YAML would otherwise read as another type.
func scalarStyle(v string) yaml.Style {
	if _, err := strconv.ParseFloat(v, 64); err == nil {
		return 0
	}
	var probe interface{}
	if err := yaml.Unmarshal([]byte(v), &probe); err != nil {
		return yaml.DoubleQuotedStyle
	}
	if _, ok := probe.(string); !ok {
		return yaml.DoubleQuotedStyle
	}
	return 0
}

// WriteValue prints any value as text, JSON or YAML. Text falls back to the
// value's String method or %v.
func WriteValue(w io.Writer, format Format, v interface{}) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case FormatYAML:
		return encodeYAML(w, v)
	default:
		_, err := fmt.Fprintln(w, v)
		return err
	}
}

func encodeYAML(w io.Writer, v interface{}) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}

// WriteDeployments prints deployment history.
func WriteDeployments(w io.Writer, format Format, deployments []contracts.Deployment) error {
	if format != FormatText {
		return WriteValue(w, format, deployments)
	}

	header := fmt.Sprintf("%s %s %s %s %s %s",
		PadRight("ID", 8), PadRight("STARTED", 20), PadRight("HOST", 24),
		PadRight("BUILD", 6), PadRight("STATUS", 10), "STATE")
	if _, err := fmt.Fprintln(w, header); err != nil {
		return err
	}
	for _, d := range deployments {
		build := ""
		if d.BuildNumber > 0 {
			build = "#" + strconv.Itoa(d.BuildNumber)
		}
		line := fmt.Sprintf("%s %s %s %s %s %s",
			PadRight(shortID(d.ID), 8),
			PadRight(d.StartedAt.Local().Format(time.DateTime), 20),
			PadRight(d.Host, 24),
			PadRight(build, 6),
			PadRight(d.Status, 10),
			d.State)
		if d.Error != "" {
			line += "  " + Truncate(d.Error, 60, true)
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

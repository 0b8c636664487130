// Package report renders pipeline results for the command line as text,
// JSON or YAML.
package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gopkg.in/yaml.v3"

	"github.com/okian/gincana/internal/domain/leaderboard"
	"github.com/okian/gincana/internal/domain/types"
)

// Output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// ErrUnknownFormat is returned for an unsupported output format.
var ErrUnknownFormat = errors.New("unknown output format")

const (
	awaitingLabel = "Aguardando pontuação"
	barWidth      = 20
)

// Writer renders results to an io.Writer.
type Writer struct {
	out     io.Writer
	format  string
	printer *message.Printer
}

// New returns a Writer for format. Text numbers use thousands separators.
func New(out io.Writer, format string) (*Writer, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	switch format {
	case "":
		format = FormatText
	case FormatText, FormatJSON, FormatYAML:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
	return &Writer{out: out, format: format, printer: message.NewPrinter(language.English)}, nil
}

// Number formats v without decimals and with thousands separators.
func (w *Writer) Number(v float64) string {
	return w.printer.Sprintf("%.0f", v)
}

// Leaderboard renders the podium, the summary and the full ranking.
func (w *Writer) Leaderboard(lb types.Leaderboard) error {
	if w.format != FormatText {
		return w.encode(lb)
	}
	var b strings.Builder
	w.header(&b, "Ranking", lb.Meta)

	for _, slot := range lb.Podium {
		if slot.Awaiting || slot.Entry == nil {
			fmt.Fprintf(&b, "%s %dº lugar  %s\n", slot.Medal, slot.Place, awaitingLabel)
			continue
		}
		fmt.Fprintf(&b, "%s %dº lugar  %s (%s)  %s pontos\n",
			slot.Medal, slot.Place, slot.Entry.Participant.Name, slot.Entry.Participant.Group,
			w.Number(slot.Entry.TotalPoints))
	}
	b.WriteString("\n")
	w.summary(&b, lb.Summary)
	b.WriteString("\n")

	tw := tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "POS\tPARTICIPANTE\tGRUPO\tPONTOS\tQUANTIDADE")
	for _, e := range lb.Entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			e.Medal, e.Participant.Name, e.Participant.Group, w.Number(e.TotalPoints), w.Number(e.TotalQuantity))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := io.WriteString(w.out, b.String())
	return err
}

func (w *Writer) summary(b *strings.Builder, s leaderboard.Summary) {
	fmt.Fprintf(b, "Participantes %s · Com pontos %s · Média %s · Máximo %s\n",
		w.Number(float64(s.Participants)), w.Number(float64(s.WithPoints)),
		w.Number(s.MeanPoints), w.Number(s.MaxPoints))
}

// Goals renders one progress bar per category.
func (w *Writer) Goals(g types.Goals) error {
	if w.format != FormatText {
		return w.encode(g)
	}
	var b strings.Builder
	w.header(&b, "Metas", g.Meta)
	if len(g.Goals) == 0 {
		b.WriteString("Nenhuma meta cadastrada\n")
	}

	tw := tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)
	for _, p := range g.Goals {
		fmt.Fprintf(tw, "%s\t%s\t%s / %s\t%.1f%%\n",
			p.Category, bar(p.Percent), w.Number(p.Achieved), w.Number(p.Target), p.Percent)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := io.WriteString(w.out, b.String())
	return err
}

// Overview renders the headline figures and points per group.
func (w *Writer) Overview(o types.Overview) error {
	if w.format != FormatText {
		return w.encode(o)
	}
	var b strings.Builder
	w.header(&b, "Visão geral", o.Meta)
	ov := o.Overview
	fmt.Fprintf(&b, "Pontos %s · Itens %s · Grupos ativos %d · Participantes ativos %d\n\n",
		w.Number(ov.TotalPoints), w.Number(ov.TotalQuantity), ov.ActiveGroups, ov.ActiveParticipants)

	tw := tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "GRUPO\tPONTOS")
	for _, g := range ov.PointsByGroup {
		fmt.Fprintf(tw, "%s\t%s\n", g.Key, w.Number(g.Value))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := io.WriteString(w.out, b.String())
	return err
}

func (w *Writer) header(b *strings.Builder, title string, m types.Meta) {
	fmt.Fprintf(b, "%s · grupo %s · sprint %s\n", title, m.Selection.Group, m.Selection.Sprint)
	fmt.Fprintf(b, "fonte %s · versão %d · execução %s\n\n", m.Source, m.Version, m.RunID)
}

// bar draws percent (0..100) as a fixed-width bar.
func bar(percent float64) string {
	filled := int(percent / 100 * barWidth)
	filled = max(0, min(barWidth, filled))
	return "[" + strings.Repeat("#", filled) + strings.Repeat("-", barWidth-filled) + "]"
}

func (w *Writer) encode(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if w.format == FormatJSON {
		var buf strings.Builder
		enc := json.NewEncoder(&buf)
		enc.SetIndent("", "  ")
		if err := enc.Encode(json.RawMessage(data)); err != nil {
			return err
		}
		_, err = io.WriteString(w.out, buf.String())
		return err
	}
	return writeYAML(w.out, data)
}

// writeYAML re-emits JSON as block-style YAML, keeping the JSON field names
// and their order.
func writeYAML(out io.Writer, data []byte) error {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return err
	}
	blockStyle(&node)
	enc := yaml.NewEncoder(out)
	enc.SetIndent(2)
	if err := enc.Encode(&node); err != nil {
		return err
	}
	return enc.Close()
}

func blockStyle(n *yaml.Node) {
	if n.Kind == yaml.MappingNode || n.Kind == yaml.SequenceNode {
		n.Style = 0
	}
	if n.Kind == yaml.ScalarNode && n.Style == yaml.DoubleQuotedStyle {
		n.Style = 0
	}
	for _, c := range n.Content {
		blockStyle(c)
	}
}

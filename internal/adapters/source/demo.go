package source

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/okian/gincana/internal/domain/model"
)

const (
	demoSeed      = 42
	demoDonations = 50
)

var demoRoster = []struct{ name, group string }{ //nolint:gochecknoglobals // fixture
	{"Alexandre Alves", "MOTIVADOS NETSUPRE"}, {"Ana Paula Martins", "VIRTUX"},
	{"Bruno Hudson", "VIRTUX"}, {"Danillo Rodrigues", "VIRTUX"},
	{"Durga", "MOTIVADOS NETSUPRE"}, {"Eurípedes Lemes", "PACE DO BEM"},
	{"Geovany Marcos", "PACE DO BEM"}, {"Gustavo Cordeiro", "VIRTUX"},
	{"Igor Moreira", "MOTIVADOS NETSUPRE"}, {"Ismael", "PACE DO BEM"},
	{"Jessica Alcantara", "MOTIVADOS NETSUPRE"}, {"Jorge Henrique", "PACE DO BEM"},
	{"Jorge Nazaré", "VIRTUX"}, {"Kamila Nascimento", "VIRTUX"},
	{"Lucas Dias", "MOTIVADOS NETSUPRE"}, {"Lucas Rodrigues", "PACE DO BEM"},
	{"Matheus Lima", "MOTIVADOS NETSUPRE"}, {"Maycon cordeiro", "PACE DO BEM"},
	{"Milena Jorge", "PACE DO BEM"}, {"Osias Fernando", "MOTIVADOS NETSUPRE"},
	{"Pabllo Gomes", "MOTIVADOS NETSUPRE"}, {"Patricia Barbosa", "VIRTUX"},
	{"Raécio Griêco", "PACE DO BEM"}, {"Thiago Porto", "PACE DO BEM"},
	{"Tiago Alves", "VIRTUX"}, {"Wanderson Saldanha", "MOTIVADOS NETSUPRE"},
}

type demoCategory struct {
	category, item string
	unit, goal     float64
	condition      string
	bonus          float64
}

var demoCategories = []demoCategory{ //nolint:gochecknoglobals // fixture
	{"Brinquedos", "Novo", 5, 100, "Instituição específica", 50},
	{"Brinquedos", "Usado bom estado", 3, 100, "Instituição específica", 50},
	{"Roupas", "Peça de roupa", 3, 150, "Itens lavados/organizados", 40},
	{"Roupas", "Par de calçados", 5, 150, "Itens lavados/organizados", 40},
	{"Material Escolar", "Item individual", 4, 80, "Foco em 2026", 60},
	{"Material Escolar", "Kit completo", 10, 80, "Foco em 2026", 60},
	{"Alimentos", "Kg solto", 2, 500, "Consistência semanal", 20},
	{"Alimentos", "Cesta básica", 5, 500, "Consistência semanal", 20},
	{"Higiene", "Item de higiene", 4, 200, "Embalagens coletivas", 30},
	{"Higiene", "Pacote de fraldas", 6, 200, "Embalagens coletivas", 30},
}

var (
	demoSprints    = []string{"1ºSPRINT", "2ºSPRINT", "3ºSPRINT"}                         //nolint:gochecknoglobals // fixture
	demoCategoryID = []string{"Brinquedos", "Roupas", "Material Escolar", "Alimentos", "Higiene"} //nolint:gochecknoglobals // fixture
)

// Demo is a deterministic drive used when no workbook is reachable. Two
// loads always return identical data.
type Demo struct{}

// NewDemo creates the demo source.
func NewDemo() *Demo { return &Demo{} }

// Name identifies the demo source.
func (*Demo) Name() string { return "demo" }

// Load generates the demo sheets.
func (*Demo) Load(_ context.Context) (model.RawDataset, error) {
	rng := rand.New(rand.NewSource(demoSeed)) //nolint:gosec // deterministic fixture data

	participants := &model.Table{
		Name:    model.TableParticipants,
		Columns: []string{model.ColName, model.ColGroup},
	}
	for _, p := range demoRoster {
		participants.Rows = append(participants.Rows, model.Row{model.ColName: p.name, model.ColGroup: p.group})
	}

	categories := &model.Table{
		Name: model.TableCategories,
		Columns: []string{
			model.ColCategory, model.ColItemType, model.ColUnitPoints,
			model.ColGroupGoal, model.ColBonusCondition, model.ColBonusPoints,
		},
	}
	for _, c := range demoCategories {
		categories.Rows = append(categories.Rows, model.Row{
			model.ColCategory:       c.category,
			model.ColItemType:       c.item,
			model.ColUnitPoints:     c.unit,
			model.ColGroupGoal:      c.goal,
			model.ColBonusCondition: c.condition,
			model.ColBonusPoints:    c.bonus,
		})
	}

	donations := &model.Table{
		Name: model.TableDonations,
		Columns: []string{
			model.ColSprint, model.ColDate, model.ColName, model.ColGroup, model.ColCategory,
			model.ColItemType, model.ColQuantity, model.ColUnitPoints, model.ColPointsSubtotal,
			model.ColBonus, model.ColPointsTotal, model.ColNotes,
		},
	}
	for i := 0; i < demoDonations; i++ {
		p := demoRoster[rng.Intn(len(demoRoster))]
		category := demoCategoryID[rng.Intn(len(demoCategoryID))]
		items := itemsOf(category)
		item := items[rng.Intn(len(items))]

		quantity := float64(1 + rng.Intn(9))
		subtotal := quantity * item.unit
		bonus := demoBonus(rng.Float64())
		notes := "Doação registrada"
		if bonus > 0 {
			notes = "Doação com bônus"
		}

		donations.Rows = append(donations.Rows, model.Row{
			model.ColSprint:         demoSprints[rng.Intn(len(demoSprints))],
			model.ColDate:           fmt.Sprintf("2024-%02d-%02d", 10+rng.Intn(3), 1+rng.Intn(27)),
			model.ColName:           p.name,
			model.ColGroup:          p.group,
			model.ColCategory:       category,
			model.ColItemType:       item.item,
			model.ColQuantity:       quantity,
			model.ColUnitPoints:     item.unit,
			model.ColPointsSubtotal: subtotal,
			model.ColBonus:          bonus,
			model.ColPointsTotal:    subtotal + bonus,
			model.ColNotes:          notes,
		})
	}

	return model.RawDataset{Participants: participants, Categories: categories, Donations: donations}, nil
}

func itemsOf(category string) []demoCategory {
	var out []demoCategory
	for _, c := range demoCategories {
		if c.category == category {
			out = append(out, c)
		}
	}
	return out
}

// demoBonus maps u in [0,1) to a bonus: 70% none, then 20 with 10% and
// 30, 40, 50, 60 with 5% each.
func demoBonus(u float64) float64 {
	switch {
	case u < 0.70:
		return 0
	case u < 0.80:
		return 20
	case u < 0.85:
		return 30
	case u < 0.90:
		return 40
	case u < 0.95:
		return 50
	default:
		return 60
	}
}

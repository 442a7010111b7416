package dispatch

import (
	"fmt"

	accountdomain "fibrodiario-backend/internal/account/domain"
	"fibrodiario-backend/pkg/fcm"
)

// Category is a named notification type with its own opt-in flag, payload
// template, and client route.
type Category string

const (
	CategoryMorningCheckIn     = Category(accountdomain.CategoryMorningCheckIn)
	CategoryEveningCheckIn     = Category(accountdomain.CategoryEveningCheckIn)
	CategoryMedicationReminder = Category(accountdomain.CategoryMedicationReminder)
	CategoryHealthInsight      = Category(accountdomain.CategoryHealthInsight)
	CategoryEmergencyAlert     = Category(accountdomain.CategoryEmergencyAlert)
)

func ParseCategory(s string) (Category, error) {
	c := Category(s)
	if !c.Valid() {
		return "", fmt.Errorf("unknown notification category: %q", s)
	}
	return c, nil
}

func (c Category) Valid() bool {
	switch c {
	case CategoryMorningCheckIn, CategoryEveningCheckIn, CategoryMedicationReminder,
		CategoryHealthInsight, CategoryEmergencyAlert:
		return true
	}
	return false
}

func (c Category) String() string { return string(c) }

type template struct {
	title string
	body  string
	route string
}

// Payload templates and client routes on tap. The routes are an external
// contract with the web client's deep-link handling.
var templates = map[Category]template{
	CategoryMorningCheckIn: {
		title: "Bom dia! ☀️",
		body:  "Como você está se sentindo hoje? Registre seu diário da manhã.",
		route: "/quiz?periodo=manha",
	},
	CategoryEveningCheckIn: {
		title: "Boa noite! 🌙",
		body:  "Como foi o seu dia? Registre seu diário da noite.",
		route: "/quiz?periodo=noite",
	},
	CategoryMedicationReminder: {
		title: "Hora dos medicamentos 💊",
		body:  "Não se esqueça de registrar os medicamentos de hoje.",
		route: "/medications",
	},
	CategoryHealthInsight: {
		title: "Seu relatório está pronto 📊",
		body:  "Novas análises sobre a sua saúde estão disponíveis.",
		route: "/reports",
	},
	CategoryEmergencyAlert: {
		title: "Estamos com você 💜",
		body:  "Percebemos que você pode estar em crise. Toque para acessar ajuda.",
		route: "/emergencia",
	},
}

// Notification builds the shared payload for one dispatch run. Content is
// identical across every chunk of the run.
func (c Category) Notification() fcm.Notification {
	t := templates[c]
	return fcm.Notification{
		Title: t.title,
		Body:  t.body,
		Data: map[string]string{
			"category":     string(c),
			"click_action": t.route,
		},
		ChannelID:    string(c),
		HighPriority: c == CategoryEmergencyAlert,
	}
}

package notify

import (
	"bytes"
	"fmt"
	"text/template"
)

// Renderer resolves a template key and locale into deliverable text.
// Production deployments can plug a full localization service; the
// default table below covers the engine's own notification kinds.
type Renderer interface {
	Render(templateKey, locale string, fields map[string]string) (string, error)
}

type templateTable struct {
	defaultLocale string
	parsed        map[string]map[string]*template.Template
}

var templateSources = map[string]map[string]string{
	"it": {
		"ticket_created":    "🎫 Ticket {{.ticket_key}} creato: {{.title}}. Stiamo elaborando una risposta automatica.",
		"attempt_succeeded": "🤖 Risposta al ticket {{.ticket_key}}:\n\n{{.reply}}",
		"attempt_failed":    "⏳ Non siamo ancora riusciti a rispondere al ticket {{.ticket_key}}. Puoi aggiungere dettagli o attendere.",
		"ticket_escalated":  "🚨 Ticket {{.ticket_key}} escalato (utente {{.owner}}, tentativi {{.attempts}}): {{.reason}}",
		"owner_followup":    "💬 Nuovo messaggio dell'utente {{.owner}} sul ticket {{.ticket_key}}:\n\n{{.message}}",
		"operator_replied":  "👨‍💼 Risposta dell'operatore al ticket {{.ticket_key}}:\n\n{{.reply}}",
		"ticket_resolved":   "✅ Il ticket {{.ticket_key}} è stato risolto. Puoi chiuderlo se il problema è superato.",
		"ticket_closed":     "📁 Ticket {{.ticket_key}} chiuso. Grazie!",
		"request_submitted": "🔔 Nuova richiesta {{.kind}} per la lista {{.subject}} da {{.requester}}: {{.detail}}",
		"request_approved":  "✅ Richiesta {{.kind}} per {{.subject}} approvata. {{.detail}}",
		"request_rejected":  "❌ Richiesta {{.kind}} per {{.subject}} rifiutata. Note: {{.notes}}",
		"health_degraded":   "⚠️ Probe {{.probe}} in errore ({{.failures}} fallimenti consecutivi): {{.error}}",
		"health_recovered":  "✅ Probe {{.probe}} di nuovo operativo.",
	},
	"en": {
		"ticket_created":    "🎫 Ticket {{.ticket_key}} created: {{.title}}. An automated reply is on the way.",
		"attempt_succeeded": "🤖 Reply to ticket {{.ticket_key}}:\n\n{{.reply}}",
		"attempt_failed":    "⏳ We could not answer ticket {{.ticket_key}} yet. You can add details or wait.",
		"ticket_escalated":  "🚨 Ticket {{.ticket_key}} escalated (user {{.owner}}, attempts {{.attempts}}): {{.reason}}",
		"owner_followup":    "💬 New message from user {{.owner}} on ticket {{.ticket_key}}:\n\n{{.message}}",
		"operator_replied":  "👨‍💼 Operator reply to ticket {{.ticket_key}}:\n\n{{.reply}}",
		"ticket_resolved":   "✅ Ticket {{.ticket_key}} has been resolved. Close it if the problem is gone.",
		"ticket_closed":     "📁 Ticket {{.ticket_key}} closed. Thank you!",
		"request_submitted": "🔔 New {{.kind}} request for list {{.subject}} from {{.requester}}: {{.detail}}",
		"request_approved":  "✅ {{.kind}} request for {{.subject}} approved. {{.detail}}",
		"request_rejected":  "❌ {{.kind}} request for {{.subject}} rejected. Notes: {{.notes}}",
		"health_degraded":   "⚠️ Probe {{.probe}} degraded ({{.failures}} consecutive failures): {{.error}}",
		"health_recovered":  "✅ Probe {{.probe}} is back up.",
	},
}

// NewTemplateTable builds the built-in renderer.
func NewTemplateTable(defaultLocale string) (Renderer, error) {
	if defaultLocale == "" {
		defaultLocale = "it"
	}
	parsed := make(map[string]map[string]*template.Template, len(templateSources))
	for locale, keys := range templateSources {
		parsed[locale] = make(map[string]*template.Template, len(keys))
		for key, src := range keys {
			tpl, err := template.New(locale + "/" + key).Parse(src)
			if err != nil {
				return nil, fmt.Errorf("parse template %s/%s: %w", locale, key, err)
			}
			parsed[locale][key] = tpl
		}
	}
	return &templateTable{defaultLocale: defaultLocale, parsed: parsed}, nil
}

func (t *templateTable) Render(templateKey, locale string, fields map[string]string) (string, error) {
	tpl := t.lookup(templateKey, locale)
	if tpl == nil {
		return "", fmt.Errorf("no template for key %q", templateKey)
	}
	var buf bytes.Buffer
	if err := tpl.Execute(&buf, fields); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func (t *templateTable) lookup(key, locale string) *template.Template {
	if byKey, ok := t.parsed[locale]; ok {
		if tpl, ok := byKey[key]; ok {
			return tpl
		}
	}
	if byKey, ok := t.parsed[t.defaultLocale]; ok {
		return byKey[key]
	}
	return nil
}

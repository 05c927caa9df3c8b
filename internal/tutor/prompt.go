package tutor

import (
	"fmt"
	"strings"

	"github.com/timisisipi/oposai-backend/internal/model"
)

// systemPrompt is the fixed tutor role instruction. The explanation must
// address why the correct option is right and the others are not, in the
// learner's language, within a bounded length.
const systemPrompt = "Eres un tutor de oposiciones. Responde en español claro y conciso. 4-6 líneas máximo. No repitas la pregunta."

// buildUserPrompt assembles the deterministic user payload: stem, options
// rendered one per line in label order, the correct option, the learner's
// selection when recorded, and the topic ("(Desconocido)" when unknown).
func buildUserPrompt(q *model.Question, selection *model.OptionLabel) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Pregunta: %s\n", q.Stem)
	b.WriteString("Opciones:\n")
	for _, opt := range q.Options {
		fmt.Fprintf(&b, "%s. %s\n", opt.Label, opt.Text)
	}
	fmt.Fprintf(&b, "Respuesta correcta: %s\n", q.CorrectOption)
	if selection != nil {
		fmt.Fprintf(&b, "Respuesta del alumno: %s\n", *selection)
	}

	topic := q.Topic
	if topic == "" {
		topic = "(Desconocido)"
	}
	fmt.Fprintf(&b, "Tema: %s.\n", topic)
	b.WriteString("Explica por qué esa opción es correcta y por qué las otras no lo son, brevemente.")

	return b.String()
}

package quiz

import (
	"fmt"
	"strings"
)

// Prompt builds the generation instruction for a quiz on topic at difficulty.
func Prompt(topic, difficulty string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Genera un cuestionario de %d preguntas de opción múltiple sobre \"%s\" con dificultad \"%s\".\n", 10, topic, difficulty)
	b.WriteString("Responde ÚNICAMENTE con un objeto JSON válido, sin texto adicional ni bloques de código, con esta forma exacta:\n")
	b.WriteString(`{"topic": string, "difficulty": string, "questions": [{"id": "q1", "question": string, "options": [string, string, string, string], "correctIndex": 0, "explanation": string}]}`)
	b.WriteString("\nReglas:\n")
	b.WriteString("- Exactamente 10 preguntas, con ids q1 a q10.\n")
	b.WriteString("- Cada pregunta tiene exactamente 4 opciones y una sola correcta.\n")
	b.WriteString("- correctIndex es un entero entre 0 y 3 que indica la opción correcta.\n")
	b.WriteString("- explanation justifica brevemente la respuesta correcta.\n")
	b.WriteString("- Escribe en español.\n")
	return b.String()
}

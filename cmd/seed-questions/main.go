package main

import (
	"context"
	"fmt"
	"time"

	"github.com/timisisipi/oposai-backend/internal/config"
	"github.com/timisisipi/oposai-backend/internal/database"
	"github.com/timisisipi/oposai-backend/internal/logger"
)

type seedOption struct {
	label string
	text  string
}

type seedQuestion struct {
	subject    string
	topic      string
	stem       string
	difficulty string
	correct    string
	options    []seedOption
}

// A small bank covering the common opposition topics, enough to exercise a
// full timed attempt locally.
var bank = []seedQuestion{
	{
		subject:    "Derecho Constitucional",
		topic:      "Constitución Española",
		stem:       "¿En qué año se aprobó la Constitución Española vigente?",
		difficulty: "easy",
		correct:    "C",
		options: []seedOption{
			{"A", "1931"},
			{"B", "1975"},
			{"C", "1978"},
			{"D", "1982"},
		},
	},
	{
		subject:    "Derecho Constitucional",
		topic:      "Constitución Española",
		stem:       "¿Cuántos títulos tiene la Constitución Española, sin contar el preliminar?",
		difficulty: "medium",
		correct:    "B",
		options: []seedOption{
			{"A", "Ocho"},
			{"B", "Diez"},
			{"C", "Doce"},
			{"D", "Catorce"},
		},
	},
	{
		subject:    "Derecho de la Unión Europea",
		topic:      "Unión Europea",
		stem:       "¿Qué tratado dio origen a la Unión Europea con su denominación actual?",
		difficulty: "medium",
		correct:    "A",
		options: []seedOption{
			{"A", "El Tratado de Maastricht"},
			{"B", "El Tratado de Roma"},
			{"C", "El Tratado de Lisboa"},
			{"D", "El Acta Única Europea"},
		},
	},
	{
		subject:    "Derecho de la Unión Europea",
		topic:      "Unión Europea",
		stem:       "¿Cuál es la institución que ostenta la iniciativa legislativa en la Unión Europea?",
		difficulty: "hard",
		correct:    "D",
		options: []seedOption{
			{"A", "El Parlamento Europeo"},
			{"B", "El Consejo Europeo"},
			{"C", "El Tribunal de Justicia"},
			{"D", "La Comisión Europea"},
		},
	},
	{
		subject:    "Derecho Administrativo",
		topic:      "Procedimiento Administrativo",
		stem:       "Según la Ley 39/2015, ¿cuál es el plazo general máximo para resolver un procedimiento cuando la norma no fija otro?",
		difficulty: "medium",
		correct:    "B",
		options: []seedOption{
			{"A", "Un mes"},
			{"B", "Tres meses"},
			{"C", "Seis meses"},
			{"D", "Un año"},
		},
	},
	{
		subject:    "Derecho Administrativo",
		topic:      "Procedimiento Administrativo",
		stem:       "¿Qué recurso procede contra un acto administrativo que pone fin a la vía administrativa?",
		difficulty: "medium",
		correct:    "A",
		options: []seedOption{
			{"A", "Recurso potestativo de reposición"},
			{"B", "Recurso de alzada"},
			{"C", "Recurso extraordinario de revisión"},
			{"D", "Reclamación previa"},
		},
	},
}

func main() {
	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	fmt.Printf("=== Seeding %d Questions ===\n", len(bank))

	seeded := 0
	for _, q := range bank {
		var subjectID string
		err := pool.QueryRow(ctx,
			`INSERT INTO subjects (name) VALUES ($1)
			 ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
			 RETURNING id`, q.subject,
		).Scan(&subjectID)
		if err != nil {
			log.Fatal().Err(err).Str("subject", q.subject).Msg("Failed to upsert subject")
		}

		var topicID string
		err = pool.QueryRow(ctx,
			`INSERT INTO topics (name, subject_id) VALUES ($1, $2)
			 ON CONFLICT (name) DO UPDATE SET subject_id = EXCLUDED.subject_id
			 RETURNING id`, q.topic, subjectID,
		).Scan(&topicID)
		if err != nil {
			log.Fatal().Err(err).Str("topic", q.topic).Msg("Failed to upsert topic")
		}

		var questionID string
		err = pool.QueryRow(ctx,
			`INSERT INTO questions (topic_id, subject_id, stem, difficulty, correct_option)
			 VALUES ($1, $2, $3, $4, $5)
			 RETURNING id`, topicID, subjectID, q.stem, q.difficulty, q.correct,
		).Scan(&questionID)
		if err != nil {
			log.Fatal().Err(err).Str("stem", q.stem).Msg("Failed to insert question")
		}

		for _, opt := range q.options {
			_, err := pool.Exec(ctx,
				`INSERT INTO options (question_id, label, text) VALUES ($1, $2, $3)`,
				questionID, opt.label, opt.text,
			)
			if err != nil {
				log.Fatal().Err(err).Str("label", opt.label).Msg("Failed to insert option")
			}
		}
		seeded++
	}

	fmt.Printf("Seeded %d questions across their topics\n", seeded)
}

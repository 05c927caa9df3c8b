package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/timisisipi/oposai-backend/internal/model"
)

// QuestionRepository handles question bank data access.
type QuestionRepository struct {
	pool *pgxpool.Pool
}

// NewQuestionRepository creates a new QuestionRepository.
func NewQuestionRepository(pool *pgxpool.Pool) *QuestionRepository {
	return &QuestionRepository{pool: pool}
}

// Sample draws up to limit random questions, optionally filtered by topic
// and subject. The sampling itself happens in the get_random_questions
// procedure; fewer rows than limit is a legitimate outcome, not an error.
// The returned projection never includes the correct option.
func (r *QuestionRepository) Sample(ctx context.Context, filter model.SampleFilter, limit int) ([]model.Question, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, stem, difficulty, topic_id, topic, subject FROM get_random_questions($1, $2, $3)`,
		filter.TopicID, filter.SubjectID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("sample questions: %w", err)
	}
	defer rows.Close()

	var questions []model.Question
	for rows.Next() {
		var q model.Question
		var topic, subject *string
		if err := rows.Scan(&q.ID, &q.Stem, &q.Difficulty, &q.TopicID, &topic, &subject); err != nil {
			return nil, err
		}
		if topic != nil {
			q.Topic = *topic
		}
		if subject != nil {
			q.Subject = *subject
		}
		questions = append(questions, q)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := r.attachOptions(ctx, questions); err != nil {
		return nil, err
	}
	return questions, nil
}

// GetTutorView loads one question including its correct option and topic
// name. This projection is reserved for server-side use by the tutor; it is
// never sent to the learner before scoring.
func (r *QuestionRepository) GetTutorView(ctx context.Context, questionID uuid.UUID) (*model.Question, error) {
	q := &model.Question{}
	var topic *string
	var correct string
	err := r.pool.QueryRow(ctx,
		`SELECT q.id, q.stem, q.difficulty, q.topic_id, t.name, q.correct_option
		 FROM questions q
		 LEFT JOIN topics t ON t.id = q.topic_id
		 WHERE q.id = $1`, questionID,
	).Scan(&q.ID, &q.Stem, &q.Difficulty, &q.TopicID, &topic, &correct)
	if err != nil {
		return nil, err
	}
	if topic != nil {
		q.Topic = *topic
	}
	q.CorrectOption = model.OptionLabel(correct)

	qs := []model.Question{*q}
	if err := r.attachOptions(ctx, qs); err != nil {
		return nil, err
	}
	return &qs[0], nil
}

// ListTopics returns all topics for the filter picker.
func (r *QuestionRepository) ListTopics(ctx context.Context) ([]model.Topic, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name FROM topics ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var topics []model.Topic
	for rows.Next() {
		var t model.Topic
		if err := rows.Scan(&t.ID, &t.Name); err != nil {
			return nil, err
		}
		topics = append(topics, t)
	}
	return topics, rows.Err()
}

// attachOptions loads the option lists for a question set in one query,
// ordered by label so rendering stays deterministic.
func (r *QuestionRepository) attachOptions(ctx context.Context, questions []model.Question) error {
	if len(questions) == 0 {
		return nil
	}

	ids := make([]uuid.UUID, len(questions))
	index := make(map[uuid.UUID]int, len(questions))
	for i := range questions {
		ids[i] = questions[i].ID
		index[questions[i].ID] = i
	}

	rows, err := r.pool.Query(ctx,
		`SELECT question_id, label, text
		 FROM options
		 WHERE question_id = ANY($1)
		 ORDER BY question_id, label`, ids,
	)
	if err != nil {
		return fmt.Errorf("load options: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var qid uuid.UUID
		var label, text string
		if err := rows.Scan(&qid, &label, &text); err != nil {
			return err
		}
		if i, ok := index[qid]; ok {
			questions[i].Options = append(questions[i].Options, model.Option{
				Label: model.OptionLabel(label),
				Text:  text,
			})
		}
	}
	return rows.Err()
}

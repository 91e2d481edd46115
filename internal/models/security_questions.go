package models

import "time"

// QuestionCount is the number of question/answer pairs a user must configure.
const QuestionCount = 3

// SecurityQuestion is one stored question with the bcrypt hash of its
// normalized answer. The plaintext answer is never persisted.
type SecurityQuestion struct {
	Question   string `db:"question"`
	AnswerHash string `db:"answer_hash"`
}

// SecurityQuestionSet is the full per-user set, written wholesale by the
// owner and read back only as question text. Absent entirely when the
// user never configured recovery.
type SecurityQuestionSet struct {
	UserBucket int                `db:"user_bucket"`
	UserID     string             `db:"user_id"`
	Questions  []SecurityQuestion `db:"questions"`
	UpdatedAt  time.Time          `db:"updated_at"`
}

// AnswerSubmission is one claimed answer in a verification request,
// matched to the stored entry by exact question text.
type AnswerSubmission struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

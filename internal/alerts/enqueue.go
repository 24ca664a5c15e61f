package alerts

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

// ensureClient returns a usable client instance
func ensureClient() *asynq.Client {
	if client == nil {
		Init()
	}
	return client
}

// EnqueueWelcomeEmail schedules a welcome email to the user
func EnqueueWelcomeEmail(userID, email, name string) error {
	env := EmailEnvelope{
		To:      email,
		Subject: fmt.Sprintf("Welcome to Gatedrop, %s!", name),
		Body:    fmt.Sprintf("Hi %s, thanks for joining Gatedrop.\n\nPost a delivery job or start running gigs right away.", name),
	}
	payload := WelcomeEmailPayload{UserID: userID, Name: name, Email: email, Envelope: env, SentAt: time.Now()}
	b, _ := json.Marshal(payload)
	task := asynq.NewTask(TaskWelcomeEmail, b)
	_, err := ensureClient().Enqueue(task, asynq.Queue("emails"))
	return err
}

// EnqueuePayoutNotice notifies the runner after the requester confirms
// delivery and the fee lands in their wallet
func EnqueuePayoutNotice(jobID, runnerID, email string, amount int64) error {
	env := EmailEnvelope{
		To:      email,
		Subject: "Delivery confirmed - you've been paid",
		Body:    fmt.Sprintf("Delivery for job %s was confirmed. %d has been credited to your wallet.", jobID, amount),
	}
	payload := PayoutNoticePayload{JobID: jobID, RunnerID: runnerID, Email: email, Amount: amount, Envelope: env, SentAt: time.Now()}
	b, _ := json.Marshal(payload)
	task := asynq.NewTask(TaskPayoutNotice, b)
	_, err := ensureClient().Enqueue(task, asynq.Queue("emails"))
	return err
}

// EnqueueBanNotice informs a runner their account has been restricted
func EnqueueBanNotice(email string, reportCount int) error {
	env := EmailEnvelope{
		To:      email,
		Subject: "Your Gatedrop account has been restricted",
		Body:    fmt.Sprintf("Your account has received %d reports and can no longer apply to or accept jobs.", reportCount),
	}
	payload := BanNoticePayload{Email: email, ReportCount: reportCount, Envelope: env, SentAt: time.Now()}
	b, _ := json.Marshal(payload)
	task := asynq.NewTask(TaskBanNotice, b)
	_, err := ensureClient().Enqueue(task, asynq.Queue("emails"))
	return err
}

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/lawdesk/lawdesk-server/internal/ai"
	"github.com/lawdesk/lawdesk-server/internal/config"
	"github.com/lawdesk/lawdesk-server/internal/db"
	"github.com/lawdesk/lawdesk-server/internal/logger"
	"github.com/lawdesk/lawdesk-server/internal/models"
	"github.com/lawdesk/lawdesk-server/internal/ocr"
	"github.com/lawdesk/lawdesk-server/internal/practice"
	"github.com/lawdesk/lawdesk-server/internal/storage"
	"github.com/lawdesk/lawdesk-server/internal/store/rabbitmq"
)

func workerConcurrency() int {
	v := os.Getenv("WORKER_CONCURRENCY")
	if v == "" {
		return 2
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 2
	}
	if n > 50 {
		return 50
	}
	return n
}

func main() {
	cfg := config.Load()

	log, err := logger.New(cfg.AppEnv)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gdb, err := db.Connect(cfg.DBDSN)
	if err != nil {
		log.Fatal("database connect failed", "error", err)
	}

	gemini, err := ai.NewGeminiProvider(ctx, cfg.GeminiAPIKey, cfg.ChatModel, cfg.OCRModel, cfg.SystemPrompt)
	if err != nil {
		log.Fatal("gemini init failed", "error", err)
	}
	defer gemini.Close()

	objects, err := storage.NewS3Store(ctx, cfg)
	if err != nil {
		log.Fatal("object storage init failed", "error", err)
	}

	repo := practice.NewRepo(gdb)
	gateway := ocr.NewGateway(gemini, cfg.MaxUploadSize, cfg.AITimeout, log)

	conn, err := amqp.Dial(cfg.RabbitURL)
	if err != nil {
		log.Fatal("rabbit dial failed", "error", err)
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		log.Fatal("rabbit channel failed", "error", err)
	}
	defer ch.Close()

	if err := rabbitmq.DeclareQueues(ch, cfg.RabbitQueue); err != nil {
		log.Fatal("queue declare failed", "error", err)
	}

	concurrency := workerConcurrency()
	if err := ch.Qos(concurrency, 0, false); err != nil {
		log.Fatal("qos failed", "error", err)
	}

	msgs, err := ch.Consume(cfg.RabbitQueue, "", false, false, false, false, nil)
	if err != nil {
		log.Fatal("consume failed", "error", err)
	}

	log.Info("worker started", "queue", cfg.RabbitQueue, "concurrency", concurrency)

	jobs := make(chan amqp.Delivery, concurrency*2)

	var wg sync.WaitGroup
	wg.Add(concurrency)
	for i := 0; i < concurrency; i++ {
		go func(workerID int) {
			defer wg.Done()
			wlog := log.With("worker", workerID)
			for d := range jobs {
				var m rabbitmq.JobMessage
				if err := json.Unmarshal(d.Body, &m); err != nil || m.JobID == "" {
					wlog.Warn("bad message, sending to dlq", "error", err)
					_ = d.Nack(false, false)
					continue
				}

				start := time.Now()
				if err := handleJob(ctx, repo, objects, gateway, m.JobID); err != nil {
					wlog.Error("transcription job failed",
						"job_id", m.JobID, "cost", time.Since(start), "error", err)
					_ = d.Nack(false, false)
					continue
				}

				wlog.Info("transcription job done", "job_id", m.JobID, "cost", time.Since(start))
				if err := d.Ack(false); err != nil {
					wlog.Error("ack failed", "job_id", m.JobID, "error", err)
				}
			}
		}(i)
	}

	for {
		select {
		case <-ctx.Done():
			log.Info("worker shutting down")
			close(jobs)
			wg.Wait()
			return

		case d, chOpen := <-msgs:
			if !chOpen {
				log.Warn("delivery channel closed")
				time.Sleep(time.Second)
				continue
			}
			jobs <- d
		}
	}
}

// handleJob runs one transcription: fetch the file, run OCR, persist the
// result. Any failure marks both the job and the document failed before the
// delivery is nacked to the DLQ.
func handleJob(ctx context.Context, repo *practice.Repo, objects storage.ObjectStore, gateway *ocr.Gateway, jobID string) error {
	if err := repo.MarkJobRunning(ctx, jobID); err != nil {
		return fmt.Errorf("mark running: %w", err)
	}

	job, err := repo.TranscriptionJob(ctx, jobID)
	if err != nil {
		return fmt.Errorf("load job: %w", err)
	}

	doc, err := repo.Document(ctx, job.DocumentID)
	if err != nil {
		return failJob(ctx, repo, jobID, "", fmt.Errorf("load document: %w", err))
	}

	if err := repo.UpdateDocumentStatus(ctx, doc.ID, models.TranscriptionProcessing); err != nil {
		return failJob(ctx, repo, jobID, doc.ID, fmt.Errorf("set processing: %w", err))
	}

	data, err := objects.Get(ctx, doc.FilePath)
	if err != nil {
		return failJob(ctx, repo, jobID, doc.ID, fmt.Errorf("fetch object: %w", err))
	}

	result, err := gateway.Process(ctx, data, doc.FileType)
	if err != nil {
		return failJob(ctx, repo, jobID, doc.ID, fmt.Errorf("ocr: %w", err))
	}

	dates := ocr.ExtractDates(result.ExtractedText)
	numbers := ocr.ExtractNumbers(result.ExtractedText)

	if err := repo.SaveTranscription(ctx, doc.ID,
		result.ExtractedText, result.DocumentType, result.Confidence, dates, numbers); err != nil {
		return failJob(ctx, repo, jobID, doc.ID, fmt.Errorf("save transcription: %w", err))
	}

	if err := repo.MarkJobSucceeded(ctx, jobID); err != nil {
		return fmt.Errorf("mark succeeded: %w", err)
	}
	return nil
}

func failJob(ctx context.Context, repo *practice.Repo, jobID, docID string, cause error) error {
	_ = repo.MarkJobFailed(ctx, jobID, cause.Error())
	if docID != "" {
		_ = repo.UpdateDocumentStatus(ctx, docID, models.TranscriptionFailed)
	}
	return cause
}

package integration

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"

	"github.com/quizdrill/quizdrill/internal/app"
	"github.com/quizdrill/quizdrill/internal/domain"
	"github.com/quizdrill/quizdrill/internal/infra/memory"
	pgstore "github.com/quizdrill/quizdrill/internal/infra/postgres"
	"github.com/quizdrill/quizdrill/internal/infra/postgres/migrations"
	infraredis "github.com/quizdrill/quizdrill/internal/infra/redis"
)

func TestQuizRoundEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	runMigrations(t, ctx, pgURL)

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}

	results := pgstore.NewResultStore(pool)
	sessions := infraredis.NewSessionStore(redisClient, 5*time.Minute)
	words := memory.NewWordRepository(pgstore.NewWordLoader(pool, pgstore.DefaultWordListID), 5*time.Minute)
	service := app.NewSessionService(app.ServiceConfig{
		Sessions:    sessions,
		Results:     results,
		Multipliers: results,
		Credits:     results,
		Words:       words,
	})

	if err := service.SetMultiplier(ctx, "u1", domain.TypeSimpleMath, 2); err != nil {
		t.Fatalf("set multiplier: %v", err)
	}

	session, err := service.StartQuiz(ctx, "u1", domain.TypeSimpleMath)
	if err != nil {
		t.Fatalf("start quiz: %v", err)
	}
	answers := make([]any, len(session.Questions))
	for i, q := range session.Questions {
		answers[i] = float64(*q.Answer.Number)
	}
	result, err := service.Submit(ctx, "u1", domain.TypeSimpleMath, session.ID, answers)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if result.Score != 10 || result.Total != 10 {
		t.Fatalf("expected 10/10, got %d/%d", result.Score, result.Total)
	}

	// The session was consumed from Redis; a replay must fail.
	if _, err := service.Submit(ctx, "u1", domain.TypeSimpleMath, session.ID, answers); err == nil {
		t.Fatalf("expected replay to fail")
	}

	stats, err := service.UserStats(ctx, "u1")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.SessionsCount != 1 || stats.TotalScore != 20 {
		t.Fatalf("expected one session worth 20 points, got %+v", stats)
	}

	// The seeded word list should make a full spelling round possible.
	wordSession, err := service.StartWords(ctx, "u1")
	if err != nil {
		t.Fatalf("start words: %v", err)
	}
	wordAnswers := make([]any, len(wordSession.Words))
	for i, entry := range wordSession.Words {
		wordAnswers[i] = strings.ToUpper(entry.Word)
	}
	wordResult, err := service.Submit(ctx, "u1", domain.TypeSimpleWords, wordSession.ID, wordAnswers)
	if err != nil {
		t.Fatalf("submit words: %v", err)
	}
	if wordResult.Score != wordResult.Total {
		t.Fatalf("expected perfect word round, got %d/%d", wordResult.Score, wordResult.Total)
	}

	records, err := service.UserSessions(ctx, "u1")
	if err != nil {
		t.Fatalf("sessions: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if !records[0].CompletedAt.Before(records[1].CompletedAt) && !records[0].CompletedAt.Equal(records[1].CompletedAt) {
		t.Fatalf("records out of order: %+v", records)
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "quiz", "POSTGRES_PASSWORD": "quizpass", "POSTGRES_DB": "quizdb"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://quiz:quizpass@%s:%s/quizdb?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start redis: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	url := fmt.Sprintf("redis://%s:%s", host, port.Port())
	return url, func() {
		_ = container.Terminate(ctx)
	}
}

func runMigrations(t *testing.T, ctx context.Context, dsn string) {
	t.Helper()
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	migrator := migrate.NewMigrator(db, migrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}

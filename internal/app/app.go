// Package app инициализирует все компоненты приложения.
// app.go — точка сборки: создаёт БД-пул, репозитории, сервисы,
// конечный автомат панели и собирает всё в один объект App.
package app

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"

	"edustack.in/resource-bot/internal/bot"
	"edustack.in/resource-bot/internal/config"
	"edustack.in/resource-bot/internal/db/postgres"
	"edustack.in/resource-bot/internal/features/access"
	"edustack.in/resource-bot/internal/features/catalog"
	"edustack.in/resource-bot/internal/features/panel"
	"edustack.in/resource-bot/internal/features/stats"
	"edustack.in/resource-bot/internal/features/verification"
	"edustack.in/resource-bot/internal/jobs"
	"edustack.in/resource-bot/internal/web"
)

// App содержит все компоненты приложения.
type App struct {
	Bot       *bot.Bot
	Web       *web.Server
	Scheduler *jobs.Scheduler
	DB        *pgxpool.Pool
	BotAPI    *tgbotapi.BotAPI
}

// New создаёт и инициализирует приложение.
// Порядок инициализации важен — компоненты зависят друг от друга.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	// === 1. База данных ===
	pool, err := postgres.NewPool(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("ошибка подключения к БД: %w", err)
	}

	if err := runMigrations(ctx, pool); err != nil {
		return nil, fmt.Errorf("ошибка миграций: %w", err)
	}

	// === 2. Telegram Bot API ===
	botAPI, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания Telegram API: %w", err)
	}
	botAPI.Debug = cfg.AppEnv == "development"
	log.Infof("Авторизован как @%s", botAPI.Self.UserName)

	// === 3. Репозитории ===
	accessRepo := access.NewRepository(pool)
	queueRepo := verification.NewRepository(pool)
	catalogRepo := catalog.NewRepository(pool)

	// === 4. Сервисы ===
	accessService := access.NewService(accessRepo, cfg)
	queueService := verification.NewService(queueRepo)
	catalogService := catalog.NewService(catalogRepo)
	statsService := stats.NewService(accessService, queueService, catalogService)

	// === 5. Панель ===
	sessions := panel.NewSessionManager(cfg.SessionIdleTimeout)
	machine := panel.NewMachine(accessService, queueService, catalogService, statsService, sessions)

	// === 6. Транспорт ===
	b := bot.New(botAPI, cfg, machine, accessService, queueService, catalogService)
	webServer := web.NewServer(cfg.WebAddr, statsService)

	// === 7. Планировщик задач ===
	scheduler := jobs.NewScheduler(accessService, sessions)

	return &App{
		Bot:       b,
		Web:       webServer,
		Scheduler: scheduler,
		DB:        pool,
		BotAPI:    botAPI,
	}, nil
}

// runMigrations выполняет все SQL-миграции.
func runMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	if err := postgres.InitMigrations(ctx, pool); err != nil {
		return err
	}

	migrations := []struct {
		version int
		sql     string
	}{
		{1, migration001Users},
		{2, migration002Grants},
		{3, migration003Verification},
		{4, migration004Subjects},
		{5, migration005Resources},
	}

	for _, m := range migrations {
		if err := postgres.ExecMigrationSQL(ctx, pool, m.version, m.sql); err != nil {
			return fmt.Errorf("миграция %d: %w", m.version, err)
		}
		log.Infof("Миграция %d применена", m.version)
	}
	return nil
}

// SQL-миграции встроены в код для упрощения деплоя.

var migration001Users = `
CREATE TABLE IF NOT EXISTS users (
    id BIGSERIAL PRIMARY KEY,
    user_id BIGINT UNIQUE NOT NULL,
    search_count INTEGER NOT NULL DEFAULT 0,
    created_at TIMESTAMP NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_users_user_id ON users(user_id);
`

var migration002Grants = `
CREATE TABLE IF NOT EXISTS access_grants (
    id BIGSERIAL PRIMARY KEY,
    user_id BIGINT UNIQUE NOT NULL,
    granted_at TIMESTAMP NOT NULL DEFAULT NOW(),
    expires_at TIMESTAMP NOT NULL,
    active BOOLEAN NOT NULL DEFAULT TRUE
);
CREATE INDEX IF NOT EXISTS idx_access_grants_active ON access_grants(active, expires_at);
`

var migration003Verification = `
CREATE TABLE IF NOT EXISTS verification_requests (
    id BIGSERIAL PRIMARY KEY,
    requester_id BIGINT NOT NULL,
    reference VARCHAR(255) NOT NULL,
    status VARCHAR(16) NOT NULL DEFAULT 'pending',
    submitted_at TIMESTAMP NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_verification_status ON verification_requests(status, submitted_at);
CREATE INDEX IF NOT EXISTS idx_verification_requester ON verification_requests(requester_id);
`

var migration004Subjects = `
CREATE TABLE IF NOT EXISTS subjects (
    id BIGSERIAL PRIMARY KEY,
    name VARCHAR(100) UNIQUE NOT NULL
);
`

var migration005Resources = `
CREATE TABLE IF NOT EXISTS resources (
    id BIGSERIAL PRIMARY KEY,
    subject_id BIGINT NOT NULL REFERENCES subjects(id) ON DELETE CASCADE,
    title VARCHAR(100) NOT NULL,
    link TEXT NOT NULL,
    access_count BIGINT NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_resources_subject ON resources(subject_id);
CREATE INDEX IF NOT EXISTS idx_resources_access ON resources(access_count DESC, id ASC);
`

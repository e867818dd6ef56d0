package main

import (
	"context"
	"flag"
	"os"
	"path/filepath"
	"sort"

	"github.com/joho/godotenv"

	"github.com/jhoicas/stock-ledger/internal/infrastructure/postgres"
	"github.com/jhoicas/stock-ledger/pkg/config"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

// Aplica migrations/*.sql en orden lexicográfico. Los scripts son idempotentes (IF NOT EXISTS).
func main() {
	dir := flag.String("dir", "migrations", "directorio con los scripts .sql")
	flag.Parse()

	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}
	log := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel})

	// DATABASE_URL o, en su defecto, DB_HOST/DB_PORT/DB_USER/DB_PASSWORD/DB_NAME.
	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conectar a la base de datos")
	}
	defer pool.Close()

	files, err := filepath.Glob(filepath.Join(*dir, "*.sql"))
	if err != nil {
		log.Fatal().Err(err).Msg("listar migraciones")
	}
	sort.Strings(files)
	for _, f := range files {
		sql, err := os.ReadFile(f)
		if err != nil {
			log.Fatal().Err(err).Str("file", f).Msg("leer migración")
		}
		if _, err := pool.Exec(ctx, string(sql)); err != nil {
			log.Fatal().Err(err).Str("file", f).Msg("migración fallida")
		}
		log.Info().Str("file", f).Msg("migración aplicada")
	}
}

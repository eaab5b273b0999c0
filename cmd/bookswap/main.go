package main

import (
	"os"

	"github.com/maynagashev/bookswap/internal/cli"
)

// Переменные для версии и даты сборки, устанавливаются через ldflags.
//
//nolint:gochecknoglobals // Устанавливается через ldflags при сборке
var (
	version    = "dev"     // Значение по умолчанию, если не установлено при сборке
	buildDate  = "unknown" // Значение по умолчанию
	commitHash = "N/A"     // Значение по умолчанию
)

func main() {
	os.Exit(cli.Execute(cli.BuildInfo{
		Version:    version,
		BuildDate:  buildDate,
		CommitHash: commitHash,
	}))
}

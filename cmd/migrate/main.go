// Command migrate applies the embedded schema migrations to DB_DSN.
//
//	go run ./cmd/migrate [up|down|status]
package main

import (
	"os"

	"github.com/pressly/goose/v3"

	intconfig "railway/internal/config"
	"railway/internal/db/migrations"
	"railway/internal/utils"
)

func main() {
	env := intconfig.LoadEnv()
	db, err := intconfig.ConnectDB(env.DBDSN)
	if err != nil {
		utils.Log.WithError(err).Fatal("database unavailable")
	}
	defer db.Close()

	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("mysql"); err != nil {
		utils.Log.WithError(err).Fatal("goose dialect")
	}

	cmd := "up"
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}
	switch cmd {
	case "up":
		err = goose.Up(db, ".")
	case "down":
		err = goose.Down(db, ".")
	case "status":
		err = goose.Status(db, ".")
	default:
		utils.Log.Fatalf("unknown command %q", cmd)
	}
	if err != nil {
		utils.Log.WithError(err).Fatal("migrate " + cmd)
	}
	utils.LogEvent("", "migrate", cmd, "done")
}

package main

import (
	"fmt"
	"log/slog"
	"os"

	"esic-scraper/lib/recordstore"
)

const recordsDB = "<dev_state>/records.db"

const localConfig = `{
  // written by the dev environment, it is gitignored
  portal: {
    http_dumps: "<dev_state>/http",
  },
  database: {
    file: "` + recordsDB + `",
  },
}
`

func createRecordsDB() error {
	db, err := recordstore.Config{File: recordsDB}.OpenDB()
	if err != nil {
		return err
	}
	fmt.Println("records database ready at", recordsDB)
	return db.Close()
}

func writeLocalConfig() error {
	_, err := os.Stat("esic.local.json5")
	if err == nil {
		fmt.Println("esic.local.json5 already exists, leaving it alone")
		return nil
	}
	return os.WriteFile("esic.local.json5", []byte(localConfig), 0644)
}

func PrintConfigLocations() {
	slog.Info("esic.local.json5 points the cli at the dev state, pass --verbose to get http dumps in dev/.state/http.")
}

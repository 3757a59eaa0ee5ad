package tools

/*
Appends action records (offers sent, replies sent) to the action log file
*/

import (
	"os"
	"time"

	"github.com/rs/zerolog/log"
)

func LogAction(fileName string, line string) {
	// Open or create the file for writing (append if it exists)
	f, err := os.OpenFile(fileName, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		log.Error().Err(err).Str("file", fileName).Msg("Could not open action log")
		return
	}
	defer f.Close()

	stamp := time.Now().Format("2006-01-02 15:04:05")
	_, _ = f.WriteString(stamp + " " + line + "\n")
}

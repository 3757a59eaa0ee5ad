package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"marketbot/config"
	"marketbot/dashboard"
	"marketbot/notify"
	"marketbot/store"
)

/*
Command-line interface to run the bot's agents and operations
*/

//Send opening offers to new listings
func offers(s *config.Settings, st *store.Store) error {
	return RunOfferAgent(s, st)
}

//Work the inbox and negotiate replies
func conversations(ctx context.Context, s *config.Settings, st *store.Store) error {
	return RunConversationAgent(ctx, s, st)
}

//Per-product price stats, dip detection, and trend charts
func analyze(st *store.Store) error {
	return AnalyzeMarket(st)
}

//Serve the local operator dashboard
func serveDashboard(s *config.Settings, st *store.Store) error {
	return dashboard.New(st).ListenAndServe(s.DashboardAddr)
}

//Resume a paused conversation from the command line
func resetConversation(st *store.Store, threadID string) error {
	if err := st.ResetConversation(threadID); err != nil {
		return err
	}
	fmt.Println("Conversation", threadID, "reset to negotiating")
	return nil
}

//Fire a test notification through the configured channel
func notifyTest(ctx context.Context, s *config.Settings) error {
	n := notify.FromSettings(s)
	return n.Notify(ctx, notify.KindDealClosed, notify.Payload{
		ConversationID: "test",
		Product:        "iPhone 13 Pro Max",
		SellerName:     "Test Seller",
		Price:          300,
		LastMessage:    "ok deal, see you there",
	})
}

func main() {
	mode := flag.String("mode", "", "Which function to run: offers, conversations, analyze, dashboard, reset, notifytest")
	configPath := flag.String("config", "", "Config file path (default ~/.marketbot/config.json)")
	thread := flag.String("thread", "", "Thread id for reset")
	verbose := flag.Bool("v", false, "Debug logging")
	flag.Parse()

	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"})
	if *verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	settings, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Could not load settings")
	}

	st, err := store.Open(config.ListingsFile, config.MessagesFile)
	if err != nil {
		log.Fatal().Err(err).Msg("Could not open state files")
	}

	ctx := context.Background()

	switch *mode {
	case "offers":
		err = offers(settings, st)

	case "conversations":
		err = conversations(ctx, settings, st)

	case "analyze":
		err = analyze(st)

	case "dashboard":
		err = serveDashboard(settings, st)

	case "reset":
		if *thread == "" {
			fmt.Println("Please provide a -thread id to reset")
			return
		}
		err = resetConversation(st, *thread)

	case "notifytest":
		err = notifyTest(ctx, settings)

	default:
		fmt.Println("Unknown mode:", *mode)
		return
	}

	if err != nil {
		log.Fatal().Err(err).Str("mode", *mode).Msg("Run failed")
	}
}

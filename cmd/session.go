package cmd

import (
	"bufio"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/audiolibrelab/takedeck/internal/project"
	"github.com/audiolibrelab/takedeck/internal/service"
	"github.com/audiolibrelab/takedeck/internal/session"

	"github.com/spf13/cobra"
)

var sessionCmd = &cobra.Command{
	Use:   "session [project] [instrument]",
	Short: "Run a live recording session",
	Long: `Start a recording session for one instrument over a project's setlist.
The whole session is captured continuously; takes are cut out afterwards
from the session log.

Commands during the session:
  r  start recording the current track
  b  back to start (restart the take)
  e  end the song (keep the take)
  n  next track
  q  end the session`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		projectName, instrument := args[0], args[1]

		proj, err := project.Open(filepath.Join(cfg.Output.ProjectsDirectory, projectName))
		if err != nil {
			return fmt.Errorf("failed to open project: %w", err)
		}

		svc := service.New(cfg, proj, instrument)
		if err := svc.Start(); err != nil {
			return fmt.Errorf("failed to start session: %w", err)
		}

		// End the session cleanly on Ctrl+C as well.
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		go func() {
			<-sigChan
			svc.End()
		}()

		fmt.Printf("Session started: %s on %s\n", projectName, instrument)
		printPrompt(svc)

		scanner := bufio.NewScanner(os.Stdin)
		for svc.State() != session.StateEnded && scanner.Scan() {
			switch strings.TrimSpace(strings.ToLower(scanner.Text())) {
			case "r":
				svc.Record()
			case "b":
				svc.BackToStart()
			case "e":
				svc.SongEnd()
			case "n":
				svc.NextTrack()
			case "q":
				svc.End()
			case "":
				// Just re-print the prompt.
			default:
				fmt.Println("Unknown command")
			}
			if svc.State() == session.StateEnded {
				break
			}
			printPrompt(svc)
		}

		fmt.Println("Finishing session...")
		saved, err := svc.Finish()
		if err != nil {
			return fmt.Errorf("failed to finish session: %w", err)
		}

		if len(saved) == 0 {
			fmt.Println("No completed takes this session.")
		} else {
			fmt.Printf("Saved %d take(s):\n", len(saved))
			for _, p := range saved {
				fmt.Printf("  %s\n", filepath.Base(p))
			}
		}
		return nil
	},
}

func printPrompt(svc *service.Service) {
	elapsed := service.FormatDurationHMS(svc.Elapsed())
	switch svc.State() {
	case session.StateWaiting:
		fmt.Printf("[%s] %s - [r] record  [q] end session\n", elapsed, svc.CurrentTrack())
	case session.StatePlaying:
		fmt.Printf("[%s] %s - recording - [b] restart  [e] end song  [q] end session\n", elapsed, svc.CurrentTrack())
	case session.StateBetweenTracks:
		if svc.HasMoreTracks() {
			fmt.Printf("[%s] %s done - [n] next track  [q] end session\n", elapsed, svc.CurrentTrack())
		} else {
			fmt.Printf("[%s] Last track done - [n] or [q] to end\n", elapsed)
		}
	}
}

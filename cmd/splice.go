package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/audiolibrelab/takedeck/internal/codec"
	"github.com/audiolibrelab/takedeck/internal/project"
	"github.com/audiolibrelab/takedeck/internal/service"
	"github.com/audiolibrelab/takedeck/internal/splice"

	"github.com/spf13/cobra"
)

var spliceCmd = &cobra.Command{
	Use:   "splice [project] [session-dir]",
	Short: "Splice completed takes out of a recorded session",
	Long: `Re-run the offline splicer over a session directory. Useful when a
session ended uncleanly or takes were deleted and need to be cut again.
session-dir may be a directory name under the project's sessions/ folder
or an absolute path.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		projectName, sessionDir := args[0], args[1]

		proj, err := project.Open(filepath.Join(cfg.Output.ProjectsDirectory, projectName))
		if err != nil {
			return fmt.Errorf("failed to open project: %w", err)
		}

		if !filepath.IsAbs(sessionDir) {
			sessionDir = filepath.Join(proj.SessionsDir(), sessionDir)
		}
		rawPath := filepath.Join(sessionDir, service.RawRecordingFilename)

		enc, err := codec.ForFormat(cfg.Output.TakeFormat)
		if err != nil {
			return err
		}

		saved, err := splice.Splice(proj, sessionDir, rawPath, decodeAdapter{}, enc, cfg.Audio.SampleRate)
		if err != nil {
			return fmt.Errorf("splice failed: %w", err)
		}

		if len(saved) == 0 {
			fmt.Println("No completed takes found in session log.")
			return nil
		}
		fmt.Printf("Saved %d take(s):\n", len(saved))
		for _, p := range saved {
			fmt.Printf("  %s\n", filepath.Base(p))
		}
		return nil
	},
}

// decodeAdapter exposes the codec package's Decode through the splicer's
// Decoder interface.
type decodeAdapter struct{}

func (decodeAdapter) Decode(path string, sampleRate int) ([]float32, error) {
	return codec.Decode(path, sampleRate)
}

package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/audiolibrelab/takedeck/internal/codec"
	"github.com/audiolibrelab/takedeck/internal/project"

	"github.com/spf13/cobra"
)

var projectCmd = &cobra.Command{
	Use:   "project",
	Short: "Manage recording projects",
}

var projectInitCmd = &cobra.Command{
	Use:   "init [name]",
	Short: "Create a new project",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		proj := project.New(filepath.Join(cfg.Output.ProjectsDirectory, args[0]))
		if err := proj.Create(); err != nil {
			return fmt.Errorf("failed to create project: %w", err)
		}
		fmt.Printf("Created project at %s\n", proj.Path)
		return nil
	},
}

var projectListCmd = &cobra.Command{
	Use:   "list",
	Short: "List existing projects",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		projects, err := project.List(cfg.Output.ProjectsDirectory)
		if err != nil {
			return err
		}
		if len(projects) == 0 {
			fmt.Println("No projects found.")
			return nil
		}
		for _, p := range projects {
			fmt.Println(filepath.Base(p))
		}
		return nil
	},
}

var projectAddTrackCmd = &cobra.Command{
	Use:   "add-track [project] [audio-file]",
	Short: "Add a backing track to a project's setlist",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		projectName, sourcePath := args[0], args[1]

		proj, err := project.Open(filepath.Join(cfg.Output.ProjectsDirectory, projectName))
		if err != nil {
			return fmt.Errorf("failed to open project: %w", err)
		}

		trackName, _ := cmd.Flags().GetString("name")
		entry, err := proj.AddBackingTrack(sourcePath, trackName)
		if err != nil {
			return fmt.Errorf("failed to add track: %w", err)
		}

		if d, err := codec.Duration(sourcePath); err == nil {
			entry.DurationSeconds = d
			if err := proj.SaveSetlist(); err != nil {
				return err
			}
		}

		fmt.Printf("Added track %q to %s\n", entry.Name, projectName)
		return nil
	},
}

var projectTracksCmd = &cobra.Command{
	Use:   "tracks [project]",
	Short: "Show a project's setlist",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		proj, err := project.Open(filepath.Join(cfg.Output.ProjectsDirectory, args[0]))
		if err != nil {
			return fmt.Errorf("failed to open project: %w", err)
		}
		if len(proj.Setlist.Tracks) == 0 {
			fmt.Println("Setlist is empty.")
			return nil
		}
		for i, t := range proj.Setlist.Tracks {
			fmt.Printf("%2d. %s (%s)", i+1, t.Name, t.BackingTrack)
			for inst, take := range t.PreferredTakes {
				fmt.Printf("  [%s: take%d]", inst, take.TakeNumber)
			}
			fmt.Println()
		}
		return nil
	},
}

func init() {
	projectAddTrackCmd.Flags().String("name", "", "track name (defaults to the file name)")

	projectCmd.AddCommand(projectInitCmd)
	projectCmd.AddCommand(projectListCmd)
	projectCmd.AddCommand(projectAddTrackCmd)
	projectCmd.AddCommand(projectTracksCmd)
}

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/guardianhq/guardian/internal/policy"
)

const gitignoreEntry = ".guardian/"

func newInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Scaffold .guardian/policy.json from the default pattern bundle",
		RunE: func(cmd *cobra.Command, args []string) error {
			cwd := resolveCwd()
			path := policy.Path(cwd)

			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}

			if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
				return fmt.Errorf("create policy dir: %w", err)
			}

			data, err := json.MarshalIndent(policy.Default(), "", "  ")
			if err != nil {
				return fmt.Errorf("marshal default policy: %w", err)
			}
			data = append(data, '\n')
			if err := os.WriteFile(path, data, 0o600); err != nil {
				return fmt.Errorf("write policy: %w", err)
			}
			cmd.Printf("wrote %s\n", path)

			if err := amendGitignore(cwd); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "guardian: gitignore: %v\n", err)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing policy file")
	return cmd
}

// amendGitignore appends the .guardian/ entry unless it is already listed.
// A repository without a .gitignore gets one.
func amendGitignore(cwd string) error {
	path := filepath.Join(cwd, ".gitignore")

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	for _, line := range strings.Split(string(data), "\n") {
		if strings.TrimSpace(line) == gitignoreEntry {
			return nil
		}
	}

	content := string(data)
	if content != "" && !strings.HasSuffix(content, "\n") {
		content += "\n"
	}
	content += gitignoreEntry + "\n"
	return os.WriteFile(path, []byte(content), 0o644)
}

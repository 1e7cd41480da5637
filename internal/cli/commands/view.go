package commands

import (
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"shardrun/internal/config"
	"shardrun/internal/storage"
	"shardrun/internal/ui"
)

// ViewCommand browses the last saved run
type ViewCommand struct {
	cfg func() *config.Config
}

// Execute runs the command
func (vc *ViewCommand) Execute(cmd *cobra.Command, args []string) error {
	cfg := vc.cfg()
	output, err := storage.NewJSONStorage(cfg).Load()
	if err != nil {
		return err
	}

	var manifest storage.Manifest
	if _, statErr := os.Stat(cfg.GetManifestPath()); statErr == nil {
		manifest, err = storage.LoadManifest(cfg.GetManifestPath())
		if err != nil {
			log.WithError(err).Warn("shard manifest unreadable, showing matrices without tests")
		}
	}
	return ui.NewResultViewer(manifest).View(output)
}

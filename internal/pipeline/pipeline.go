// Package pipeline runs the DragonShield to Moxfield import from end to end.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Granipouss/mtg-collection-pipe/internal/auth"
	"github.com/Granipouss/mtg-collection-pipe/internal/convert"
	"github.com/Granipouss/mtg-collection-pipe/internal/dragonshield"
	"github.com/Granipouss/mtg-collection-pipe/internal/models"
	"github.com/Granipouss/mtg-collection-pipe/internal/report"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Source is the inventory platform cards are exported from
type Source interface {
	ListFolders(ctx context.Context, token auth.Token) ([]models.Folder, error)
	CreateFolder(ctx context.Context, token auth.Token, name string) error
	DeleteFolder(ctx context.Context, token auth.Token, id string, version int64) error
	ExportFolder(ctx context.Context, token auth.Token, id, dest string) error
}

// Destination is the collection platform cards are imported into
type Destination interface {
	ImportFile(ctx context.Context, token auth.Token, path string) (*models.ImportResult, error)
}

// Publisher announces finished runs
type Publisher interface {
	PublishRun(summary models.RunSummary) error
}

// Config holds the run settings
type Config struct {
	// Folder is the source folder emptied by every run
	Folder  string
	WorkDir string
	// XLSXPath, when set, receives a spreadsheet of the cards added
	XLSXPath string
}

// Dependencies are the collaborators of a pipeline. Publisher is optional.
type Dependencies struct {
	Source      Source
	SourceAuth  auth.Authenticator
	Destination Destination
	DestAuth    auth.Authenticator
	Converter   *convert.Converter
	Publisher   Publisher
	Reporter    *Reporter
	Logger      *logrus.Logger
}

// Result describes how a run ended
type Result struct {
	RunID   string
	Empty   bool
	Summary models.RunSummary
}

type Pipeline struct {
	cfg Config
	Dependencies

	newRunID func() string
	now      func() time.Time
}

func New(cfg Config, deps Dependencies) *Pipeline {
	return &Pipeline{
		cfg:          cfg,
		Dependencies: deps,
		newRunID:     func() string { return uuid.New().String() },
		now:          time.Now,
	}
}

// run holds the per-run temp files
type run struct {
	id         string
	startedAt  time.Time
	exportPath string
	importPath string
}

func (p *Pipeline) newRun() *run {
	id := p.newRunID()
	return &run{
		id:         id,
		startedAt:  p.now(),
		exportPath: filepath.Join(p.cfg.WorkDir, fmt.Sprintf("tmp-ds-%s.csv", id)),
		importPath: filepath.Join(p.cfg.WorkDir, fmt.Sprintf("tmp-mf-%s.csv", id)),
	}
}

// Run executes every stage in order and stops at the first failure. An empty
// export ends the run early without touching the destination.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	r := p.newRun()
	log := p.Logger.WithField("run", r.id)
	log.Infof("Starting import of folder %s", p.cfg.Folder)

	if err := os.MkdirAll(p.cfg.WorkDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create work dir: %w", err)
	}

	p.Reporter.Stage(1, "Download from DragonShield")
	if err := p.download(ctx, r); err != nil {
		return nil, err
	}

	p.Reporter.Stage(2, "Convert from DragonShield to MoxField")
	agg, rows, err := p.convert(ctx, r)
	if err != nil {
		return nil, err
	}

	if agg.Len() < 1 {
		p.Reporter.Printf("No card to add\n")
		if err := p.removeTemp(r); err != nil {
			return nil, err
		}
		log.Info("Export was empty, nothing to import")
		return &Result{RunID: r.id, Empty: true}, nil
	}

	p.Reporter.Stage(3, "Upload to MoxField")
	if err := p.upload(ctx, r); err != nil {
		return nil, err
	}

	p.Reporter.Stage(4, "Online cleanup")
	if err := p.resetFolder(ctx); err != nil {
		return nil, err
	}

	p.Reporter.Stage(5, "Local cleanup")
	if err := p.Reporter.Step("Delete temporary files", func() error { return p.removeTemp(r) }); err != nil {
		return nil, err
	}

	summary := models.RunSummary{
		RunID:      r.id,
		StartedAt:  r.startedAt,
		FinishedAt: p.now(),
		Folder:     p.cfg.Folder,
		Rows:       rows,
		Total:      agg.Total(),
	}
	if err := report.PrintSummary(p.Reporter.Writer(), rows); err != nil {
		return nil, fmt.Errorf("failed to print summary: %w", err)
	}
	p.publish(log, summary)

	log.Infof("Imported %d cards (%d unique) in %v", summary.Total, len(rows), summary.FinishedAt.Sub(summary.StartedAt))
	return &Result{RunID: r.id, Summary: summary}, nil
}

func (p *Pipeline) download(ctx context.Context, r *run) error {
	token, err := p.authenticate(ctx, p.SourceAuth)
	if err != nil {
		return err
	}

	folder, err := p.findFolder(ctx, token)
	if err != nil {
		return err
	}
	if folder == nil {
		return fmt.Errorf("no %q folder found on DragonShield: %w", p.cfg.Folder, dragonshield.ErrFolderNotFound)
	}

	return p.Reporter.Step("Download", func() error {
		return p.Source.ExportFolder(ctx, token, folder.ID, r.exportPath)
	})
}

func (p *Pipeline) convert(ctx context.Context, r *run) (*convert.Aggregate, []models.ImportRow, error) {
	var agg *convert.Aggregate
	err := p.Reporter.Step("Parse DragonShield", func() error {
		var err error
		agg, err = p.Converter.ReadExportFile(r.exportPath)
		return err
	})
	if err != nil {
		return nil, nil, err
	}

	var rows []models.ImportRow
	err = p.Reporter.Step("Convert to MoxField", func() error {
		var err error
		rows, err = p.Converter.WriteImportFile(ctx, r.importPath, agg)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return agg, rows, nil
}

func (p *Pipeline) upload(ctx context.Context, r *run) error {
	token, err := p.authenticate(ctx, p.DestAuth)
	if err != nil {
		return err
	}
	return p.Reporter.Step("Upload", func() error {
		result, err := p.Destination.ImportFile(ctx, token, r.importPath)
		if err != nil {
			return err
		}
		if result != nil && result.TotalFailed > 0 {
			p.Logger.Warnf("Moxfield could not import %d cards", result.TotalFailed)
		}
		return nil
	})
}

// resetFolder empties the source folder by deleting and recreating it. It
// signs in again rather than reusing the stage 1 token.
func (p *Pipeline) resetFolder(ctx context.Context) error {
	token, err := p.authenticate(ctx, p.SourceAuth)
	if err != nil {
		return err
	}

	folder, err := p.findFolder(ctx, token)
	if err != nil {
		return err
	}
	if folder != nil {
		err := p.Reporter.Step("Delete old folder", func() error {
			return p.Source.DeleteFolder(ctx, token, folder.ID, folder.Version)
		})
		if err != nil {
			return err
		}
	} else {
		p.Logger.Warnf("Folder %s disappeared before cleanup", p.cfg.Folder)
	}

	return p.Reporter.Step("Create new folder", func() error {
		if err := p.Source.CreateFolder(ctx, token, p.cfg.Folder); err != nil {
			return err
		}
		folders, err := p.Source.ListFolders(ctx, token)
		if err != nil {
			return err
		}
		if _, err := dragonshield.FindFolder(folders, p.cfg.Folder); err != nil {
			return fmt.Errorf("folder %q missing after creation: %w", p.cfg.Folder, err)
		}
		return nil
	})
}

func (p *Pipeline) authenticate(ctx context.Context, a auth.Authenticator) (auth.Token, error) {
	var token auth.Token
	err := p.Reporter.Step("Authentication", func() error {
		var err error
		token, err = a.Authenticate(ctx)
		return err
	})
	return token, err
}

// findFolder lists the source folders and returns the import folder, or nil
// when it does not exist.
func (p *Pipeline) findFolder(ctx context.Context, token auth.Token) (*models.Folder, error) {
	var folders []models.Folder
	err := p.Reporter.Step("Listing", func() error {
		var err error
		folders, err = p.Source.ListFolders(ctx, token)
		return err
	})
	if err != nil {
		return nil, err
	}

	folder, err := dragonshield.FindFolder(folders, p.cfg.Folder)
	if errors.Is(err, dragonshield.ErrFolderNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &folder, nil
}

func (p *Pipeline) removeTemp(r *run) error {
	for _, path := range []string{r.exportPath, r.importPath} {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to delete %s: %w", path, err)
		}
	}
	return nil
}

// publish runs the optional outputs. Failures are logged, not returned.
func (p *Pipeline) publish(log *logrus.Entry, summary models.RunSummary) {
	if p.cfg.XLSXPath != "" {
		if err := report.WriteXLSX(p.cfg.XLSXPath, summary); err != nil {
			log.WithError(err).Error("Failed to write report")
		} else {
			log.Infof("Report written to %s", p.cfg.XLSXPath)
		}
	}
	if p.Publisher != nil {
		if err := p.Publisher.PublishRun(summary); err != nil {
			log.WithError(err).Error("Failed to publish run")
		}
	}
}

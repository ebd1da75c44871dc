package commands

import (
	"context"
	"errors"

	gocommand "github.com/goliatone/go-command"
)

// SaveDocumentInput persists a whole page document.
type SaveDocumentInput struct {
	Page string `json:"page"`
}

type documentSaver interface {
	Save(ctx context.Context, page string) error
}

// SaveDocumentCommand wraps Service.Save.
type SaveDocumentCommand struct {
	service   documentSaver
	telemetry Telemetry
}

// NewSaveDocumentCommand builds the command.
func NewSaveDocumentCommand(service documentSaver, telemetry Telemetry) *SaveDocumentCommand {
	return &SaveDocumentCommand{service: service, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[SaveDocumentInput] = (*SaveDocumentCommand)(nil)

// Execute validates and writes the document.
func (c *SaveDocumentCommand) Execute(ctx context.Context, msg SaveDocumentInput) error {
	if c.service == nil {
		return errors.New("save command requires service")
	}
	if err := c.service.Save(ctx, msg.Page); err != nil {
		return err
	}
	c.telemetry.Record(ctx, "pages.command.save", map[string]any{"page": msg.Page})
	return nil
}

// SaveSectionsInput persists a subset of sections, each with its own request.
// An empty Sections list saves every section.
type SaveSectionsInput struct {
	Page     string   `json:"page"`
	Sections []string `json:"sections"`
}

type sectionSaver interface {
	SaveSections(ctx context.Context, page string, sections []string) error
}

// SaveSectionsCommand wraps Service.SaveSections.
type SaveSectionsCommand struct {
	service   sectionSaver
	telemetry Telemetry
}

// NewSaveSectionsCommand builds the command.
func NewSaveSectionsCommand(service sectionSaver, telemetry Telemetry) *SaveSectionsCommand {
	return &SaveSectionsCommand{service: service, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[SaveSectionsInput] = (*SaveSectionsCommand)(nil)

// Execute writes the sections concurrently.
func (c *SaveSectionsCommand) Execute(ctx context.Context, msg SaveSectionsInput) error {
	if c.service == nil {
		return errors.New("save sections command requires service")
	}
	if err := c.service.SaveSections(ctx, msg.Page, msg.Sections); err != nil {
		return err
	}
	c.telemetry.Record(ctx, "pages.command.save_sections", map[string]any{
		"page":     msg.Page,
		"sections": len(msg.Sections),
	})
	return nil
}

// ReloadDocumentInput discards local edits of a page.
type ReloadDocumentInput struct {
	Page string `json:"page"`
}

type documentReloader interface {
	Reload(ctx context.Context, page string) error
}

// ReloadDocumentCommand wraps Service.Reload.
type ReloadDocumentCommand struct {
	service   documentReloader
	telemetry Telemetry
}

// NewReloadDocumentCommand builds the command.
func NewReloadDocumentCommand(service documentReloader, telemetry Telemetry) *ReloadDocumentCommand {
	return &ReloadDocumentCommand{service: service, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[ReloadDocumentInput] = (*ReloadDocumentCommand)(nil)

// Execute fetches the document again.
func (c *ReloadDocumentCommand) Execute(ctx context.Context, msg ReloadDocumentInput) error {
	if c.service == nil {
		return errors.New("reload command requires service")
	}
	if err := c.service.Reload(ctx, msg.Page); err != nil {
		return err
	}
	c.telemetry.Record(ctx, "pages.command.reload", map[string]any{"page": msg.Page})
	return nil
}

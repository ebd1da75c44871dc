package commands

import (
	"context"
	"errors"

	gocommand "github.com/goliatone/go-command"
	"github.com/goliatone/go-pages/components/pages"
)

// UploadAssetInput uploads a file for a page field. Result receives the stored
// URL when set.
type UploadAssetInput struct {
	Page    string
	Request pages.UploadRequest
	Result  *string
}

type assetUploader interface {
	Upload(ctx context.Context, page string, req pages.UploadRequest) (string, error)
}

// UploadAssetCommand wraps Service.Upload.
type UploadAssetCommand struct {
	service   assetUploader
	telemetry Telemetry
}

// NewUploadAssetCommand builds the command.
func NewUploadAssetCommand(service assetUploader, telemetry Telemetry) *UploadAssetCommand {
	return &UploadAssetCommand{service: service, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[UploadAssetInput] = (*UploadAssetCommand)(nil)

// Execute checks and sends the file.
func (c *UploadAssetCommand) Execute(ctx context.Context, msg UploadAssetInput) error {
	if c.service == nil {
		return errors.New("upload command requires service")
	}
	url, err := c.service.Upload(ctx, msg.Page, msg.Request)
	if err != nil {
		return err
	}
	if msg.Result != nil {
		*msg.Result = url
	}
	c.telemetry.Record(ctx, "pages.command.upload", map[string]any{
		"page":    msg.Page,
		"section": msg.Request.Section,
		"field":   msg.Request.Field,
	})
	return nil
}

package commands

import (
	"context"
	"errors"

	gocommand "github.com/goliatone/go-command"
	"github.com/goliatone/go-pages/components/pages"
)

type itemMover interface {
	MoveItem(ctx context.Context, req pages.MoveItemRequest) error
}

// MoveItemCommand wraps Service.MoveItem.
type MoveItemCommand struct {
	service   itemMover
	telemetry Telemetry
}

// NewMoveItemCommand builds the command.
func NewMoveItemCommand(service itemMover, telemetry Telemetry) *MoveItemCommand {
	return &MoveItemCommand{service: service, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[pages.MoveItemRequest] = (*MoveItemCommand)(nil)

// Execute moves the item and persists the new order.
func (c *MoveItemCommand) Execute(ctx context.Context, msg pages.MoveItemRequest) error {
	if c.service == nil {
		return errors.New("move command requires service")
	}
	if err := c.service.MoveItem(ctx, msg); err != nil {
		return err
	}
	c.telemetry.Record(ctx, "pages.command.move", map[string]any{
		"page":    msg.Page,
		"section": msg.Section,
		"from":    msg.From,
		"to":      msg.To,
	})
	return nil
}

// EditItemInput adds or updates a collection item. Result receives the stored
// item when set.
type EditItemInput struct {
	pages.ItemRequest
	Result *pages.Item `json:"-"`
}

type itemEditor interface {
	EditItem(ctx context.Context, req pages.ItemRequest) (pages.Item, error)
}

// EditItemCommand wraps Service.EditItem.
type EditItemCommand struct {
	service   itemEditor
	telemetry Telemetry
}

// NewEditItemCommand builds the command.
func NewEditItemCommand(service itemEditor, telemetry Telemetry) *EditItemCommand {
	return &EditItemCommand{service: service, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[EditItemInput] = (*EditItemCommand)(nil)

// Execute runs the edit session for the item.
func (c *EditItemCommand) Execute(ctx context.Context, msg EditItemInput) error {
	if c.service == nil {
		return errors.New("edit item command requires service")
	}
	item, err := c.service.EditItem(ctx, msg.ItemRequest)
	if err != nil {
		return err
	}
	if msg.Result != nil {
		*msg.Result = item
	}
	op := "update"
	if msg.ID == "" {
		op = "add"
	}
	c.telemetry.Record(ctx, "pages.command.edit_item", map[string]any{
		"page":    msg.Page,
		"section": msg.Section,
		"op":      op,
	})
	return nil
}

// RemoveItemInput deletes a collection item.
type RemoveItemInput struct {
	Page    string `json:"page"`
	Section string `json:"section"`
	ID      string `json:"id"`
}

type itemRemover interface {
	RemoveItem(ctx context.Context, page, section, id string) error
}

// RemoveItemCommand wraps Service.RemoveItem.
type RemoveItemCommand struct {
	service   itemRemover
	telemetry Telemetry
}

// NewRemoveItemCommand builds the command.
func NewRemoveItemCommand(service itemRemover, telemetry Telemetry) *RemoveItemCommand {
	return &RemoveItemCommand{service: service, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[RemoveItemInput] = (*RemoveItemCommand)(nil)

// Execute removes the item.
func (c *RemoveItemCommand) Execute(ctx context.Context, msg RemoveItemInput) error {
	if c.service == nil {
		return errors.New("remove item command requires service")
	}
	if msg.ID == "" {
		return errors.New("remove item command requires id")
	}
	if err := c.service.RemoveItem(ctx, msg.Page, msg.Section, msg.ID); err != nil {
		return err
	}
	c.telemetry.Record(ctx, "pages.command.remove_item", map[string]any{
		"page":    msg.Page,
		"section": msg.Section,
	})
	return nil
}

// SetFieldsInput writes scalar section fields.
type SetFieldsInput struct {
	Page    string       `json:"page"`
	Section string       `json:"section"`
	Fields  pages.Fields `json:"fields"`
}

type fieldSetter interface {
	SetFields(ctx context.Context, page, section string, fields pages.Fields) error
}

// SetFieldsCommand wraps Service.SetFields.
type SetFieldsCommand struct {
	service   fieldSetter
	telemetry Telemetry
}

// NewSetFieldsCommand builds the command.
func NewSetFieldsCommand(service fieldSetter, telemetry Telemetry) *SetFieldsCommand {
	return &SetFieldsCommand{service: service, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[SetFieldsInput] = (*SetFieldsCommand)(nil)

// Execute writes the fields.
func (c *SetFieldsCommand) Execute(ctx context.Context, msg SetFieldsInput) error {
	if c.service == nil {
		return errors.New("set fields command requires service")
	}
	if err := c.service.SetFields(ctx, msg.Page, msg.Section, msg.Fields); err != nil {
		return err
	}
	c.telemetry.Record(ctx, "pages.command.set_fields", map[string]any{
		"page":    msg.Page,
		"section": msg.Section,
		"count":   len(msg.Fields),
	})
	return nil
}

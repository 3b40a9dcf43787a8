package nodes

import (
	"context"

	"ml_dashboard/internal/core"
	"ml_dashboard/internal/dataset"
	"ml_dashboard/internal/state"
	"ml_dashboard/pkg"

	"github.com/cloudwego/eino/compose"

	apperrors "ml_dashboard/internal/errors"
)

type uploadCall struct {
	run
	file      *core.FileInput
	upload    *dataset.Upload
	schema    []pkg.ColumnSchema
	sessionID string
}

// UploadNode parses a dataset, resets the dashboard and registers the
// dataset with the backend
type UploadNode struct {
	deps  Deps
	chain compose.Runnable[*uploadCall, *uploadCall]
}

// NewUploadNode compiles the decode, profile, reset, send chain
func NewUploadNode(ctx context.Context, deps Deps) (*UploadNode, error) {
	n := &UploadNode{deps: deps}
	chain, err := buildChain(ctx, "upload", n.decode, n.profile, n.reset, n.send)
	if err != nil {
		return nil, err
	}
	n.chain = chain
	return n, nil
}

func (n *UploadNode) GetName() string        { return string(core.NodeTypeUpload) }
func (n *UploadNode) GetType() core.NodeType { return core.NodeTypeUpload }

// Execute runs the upload flow for input.Upload
func (n *UploadNode) Execute(ctx context.Context, input core.NodeInput) (core.NodeOutput, error) {
	if input.Upload.Empty() {
		return core.NodeOutput{Error: apperrors.Validation("Please choose a CSV file to upload."), Complete: true}, nil
	}

	call := &uploadCall{file: input.Upload}
	if _, err := n.chain.Invoke(ctx, call); err != nil {
		err = call.cause(err)
		// parse failures leave the committed state alone
		if apperrors.Is(err, apperrors.CodeParseError) {
			n.deps.Logger.Warn().Err(err).Str("file", input.Upload.Name).Msg("Upload rejected")
			return core.NodeOutput{Error: err, Complete: true}, nil
		}
		n.deps.Logger.Error().Err(err).Str("file", input.Upload.Name).Msg("Upload failed")
		return failed(ctx, n.deps, sessionIs(""), userError("Upload failed: ", err)), nil
	}

	next, applied, storeErr := n.deps.Store.UpdateIf(ctx, sessionIs(""), state.Patch{
		SessionID: state.Set(call.sessionID),
		CSVData:   state.Set(call.upload.Table.Rows),
		Schema:    state.Set(call.schema),
		Error:     state.Set(""),
	})

	n.deps.Logger.Info().
		Str("session_id", call.sessionID).
		Int("rows", call.upload.Table.TotalRows).
		Int("columns", len(call.upload.Table.Columns)).
		Msg("Dataset uploaded")

	return committed(n.deps, next, applied, storeErr, map[string]any{
		"session_id": call.sessionID,
		"rows":       call.upload.Table.TotalRows,
		"columns":    call.upload.Table.Columns,
	}), nil
}

func (n *UploadNode) decode(_ context.Context, c *uploadCall) error {
	up, err := dataset.Load(c.file.Name, c.file.Data, n.deps.Config.PreviewRows)
	if err != nil {
		return err
	}
	if len(up.Table.Columns) == 0 {
		return apperrors.Parse("Failed to parse CSV: no columns found", nil)
	}
	c.upload = up
	return nil
}

func (n *UploadNode) profile(_ context.Context, c *uploadCall) error {
	c.schema = dataset.Profile(c.upload.Table.Columns, c.upload.Table.Rows)
	return nil
}

// reset clears the previous session before anything new is written
func (n *UploadNode) reset(ctx context.Context, _ *uploadCall) error {
	resetAll(ctx, n.deps)
	return nil
}

func (n *UploadNode) send(ctx context.Context, c *uploadCall) error {
	resp, err := n.deps.Backend.Upload(ctx, c.upload.Name, c.upload.CSV)
	if err != nil {
		return err
	}
	if resp.SessionID == "" {
		return apperrors.External("backend returned no session id", 0, nil)
	}
	c.sessionID = resp.SessionID
	return nil
}

// resetAll empties the session state and the model registry together.
// Persistence failures are logged; the in-memory reset always happens.
func resetAll(ctx context.Context, deps Deps) {
	if _, err := deps.Store.Reset(ctx); err != nil {
		deps.Logger.Warn().Err(err).Msg("State reset not persisted")
	}
	if err := deps.Registry.Clear(ctx); err != nil {
		deps.Logger.Warn().Err(err).Msg("Registry reset not persisted")
	}
}

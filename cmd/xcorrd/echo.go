package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/omeyang/xcorr/pkg/context/xctx"
	"github.com/omeyang/xcorr/pkg/observability/xlog"
)

// echoResponse /echo 的响应体，Downstream 为下游 xcorrd 的响应
type echoResponse struct {
	Source             string        `json:"source"`
	OperationID        string        `json:"operation_id"`
	ParentID           string        `json:"parent_id,omitempty"`
	ID                 string        `json:"id"`
	CorrelationContext string        `json:"correlation_context,omitempty"`
	Downstream         *echoResponse `json:"downstream,omitempty"`
	DownstreamError    string        `json:"downstream_error,omitempty"`
}

func (d *daemon) echo() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		op, ok := xctx.Current(ctx)
		if !ok {
			http.Error(w, "no active operation", http.StatusInternalServerError)
			return
		}
		resp := echoResponse{
			Source:             op.Source.String(),
			OperationID:        op.OperationID,
			ParentID:           op.ParentID,
			ID:                 op.ID,
			CorrelationContext: op.Baggage.String(),
		}
		if d.downstream != "" {
			down, err := d.callDownstream(ctx)
			if err != nil {
				xlog.Warn(ctx, "xcorrd: downstream call failed", xlog.Err(err))
				resp.DownstreamError = err.Error()
			}
			resp.Downstream = down
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			xlog.Warn(ctx, "xcorrd: write response failed", xlog.Err(err))
		}
	})
}

func (d *daemon) callDownstream(ctx context.Context) (*echoResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.downstream, nil)
	if err != nil {
		return nil, err
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("downstream status %d", resp.StatusCode)
	}
	var out echoResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode downstream response: %w", err)
	}
	return &out, nil
}

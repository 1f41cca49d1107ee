package editor

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fpang/product-craft/internal/metrics"
	"github.com/rs/zerolog/log"
)

// BackendRequest is what the edit backend receives for one call.
type BackendRequest struct {
	Operation   Operation
	Image       ImageVersion
	Hotspot     *Hotspot
	Instruction string
}

// BackendResult is a successful backend answer. Data is decoded by the
// orchestrator; an undecodable payload is a MalformedResponse.
type BackendResult struct {
	Data     []byte
	MIMEType string
	// Text is any commentary the model returned alongside the image.
	Text string
}

// Backend is the external generative-edit service. Implementations should
// return *Error values with a backend kind (Refused, MalformedResponse,
// TransportFailure); any other error is reported as TransportFailure.
type Backend interface {
	Edit(ctx context.Context, req BackendRequest) (BackendResult, error)
}

// VersionSink receives the version produced by a successful edit.
// *VersionHistory satisfies it.
type VersionSink interface {
	Push(v ImageVersion) error
}

// EditRequest is one submission to the orchestrator.
type EditRequest struct {
	Tool        Tool
	Source      ImageVersion
	Hotspot     *Hotspot
	Instruction string
}

// Validate checks the request against the tool's capability. It never touches the network.
func (r EditRequest) Validate() error {
	op := r.Tool.Operation
	if r.Source.IsZero() {
		return NewError(KindNoImageLoaded, op, "upload an image before editing", nil)
	}
	if !r.Tool.Remote() {
		return NewError(KindUnsupportedOperation, op, "tool "+string(r.Tool.ID)+" does not call the edit service", nil)
	}
	if r.Tool.Capability.RequiresPoint() && r.Hotspot == nil {
		return NewError(KindMissingHotspot, op, "click on the image to choose where to apply the edit", nil)
	}
	if r.Tool.Capability.RequiresText() && strings.TrimSpace(r.Instruction) == "" {
		return NewError(KindMissingInstruction, op, "describe the edit you want", nil)
	}
	return nil
}

// Orchestrator issues at most one outstanding edit call at a time.
type Orchestrator struct {
	backend   Backend
	timeout   time.Duration
	namespace string
	inFlight  atomic.Bool
}

// OrchestratorOption configures an Orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithTimeout bounds each backend call. Zero means no deadline beyond the caller's context.
func WithTimeout(d time.Duration) OrchestratorOption {
	return func(o *Orchestrator) { o.timeout = d }
}

// WithMetricsNamespace enables EMF metrics under namespace. Empty disables them.
func WithMetricsNamespace(namespace string) OrchestratorOption {
	return func(o *Orchestrator) { o.namespace = namespace }
}

// NewOrchestrator creates an orchestrator over backend.
func NewOrchestrator(backend Backend, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{backend: backend}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// InFlight reports whether a backend call is outstanding.
func (o *Orchestrator) InFlight() bool {
	return o.inFlight.Load()
}

// Submit validates req, performs exactly one backend call and pushes the
// result into sink. On any failure sink is left untouched. A Submit while
// another is outstanding fails immediately with OrchestratorBusy.
func (o *Orchestrator) Submit(ctx context.Context, req EditRequest, sink VersionSink) (ImageVersion, error) {
	op := req.Tool.Operation
	if !o.inFlight.CompareAndSwap(false, true) {
		return ImageVersion{}, NewError(KindOrchestratorBusy, op, "another edit is still in progress", nil)
	}
	defer o.inFlight.Store(false)

	if err := req.Validate(); err != nil {
		return ImageVersion{}, err
	}

	callCtx := ctx
	if o.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	backendReq := BackendRequest{
		Operation: op,
		Image:     req.Source,
	}
	if req.Tool.Capability.RequiresPoint() && req.Hotspot != nil {
		h := *req.Hotspot
		backendReq.Hotspot = &h
	}
	if req.Tool.Capability.AcceptsText() {
		backendReq.Instruction = strings.TrimSpace(req.Instruction)
	}

	log.Info().
		Str("op", string(op)).
		Int("image_bytes", req.Source.Size()).
		Str("image_mime", req.Source.MIMEType()).
		Bool("has_hotspot", backendReq.Hotspot != nil).
		Msg("Dispatching edit to backend")

	start := time.Now()
	res, err := o.backend.Edit(callCtx, backendReq)
	elapsed := time.Since(start)

	var version ImageVersion
	if err == nil {
		version, err = decodeResult(op, res)
	}
	if err == nil {
		if pushErr := sink.Push(version); pushErr != nil {
			err = NewError(KindMalformedResponse, op, "edited image was rejected by the history", pushErr)
		}
	}
	if err != nil {
		err = classifyBackendError(callCtx, op, err)
	}

	o.record(op, err, elapsed, version.Size())

	if err != nil {
		log.Warn().
			Err(err).
			Str("op", string(op)).
			Dur("duration", elapsed).
			Msg("Edit failed")
		return ImageVersion{}, err
	}

	log.Info().
		Str("op", string(op)).
		Int("output_bytes", version.Size()).
		Str("output_mime", version.MIMEType()).
		Dur("duration", elapsed).
		Msg("Edit complete")
	return version, nil
}

func decodeResult(op Operation, res BackendResult) (ImageVersion, error) {
	if len(res.Data) == 0 {
		msg := "the AI model did not return an image"
		if text := strings.TrimSpace(res.Text); text != "" {
			msg += ". The model responded with text: \"" + text + "\""
		}
		return ImageVersion{}, NewError(KindMalformedResponse, op, msg, nil)
	}
	v, err := NewImageVersion(res.Data, res.MIMEType)
	if err != nil {
		return ImageVersion{}, NewError(KindMalformedResponse, op, "the AI model returned an unreadable image", err)
	}
	return v, nil
}

// classifyBackendError normalizes every failure into a tagged *Error.
func classifyBackendError(ctx context.Context, op Operation, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return NewError(KindTimeout, op, "the edit service did not answer in time", err)
	}

	var e *Error
	if errors.As(err, &e) {
		if e.Op == "" {
			tagged := *e
			tagged.Op = op
			return &tagged
		}
		return e
	}
	if errors.Is(err, context.Canceled) {
		return NewError(KindTransportFailure, op, "the edit request was canceled", err)
	}
	return NewError(KindTransportFailure, op, "could not reach the edit service", err)
}

func (o *Orchestrator) record(op Operation, err error, elapsed time.Duration, outputBytes int) {
	if o.namespace == "" {
		return
	}
	result := "success"
	if kind, ok := KindOf(err); ok {
		result = kind.String()
	} else if err != nil {
		result = "unknown"
	}
	rec := metrics.New(o.namespace).
		Dimension("Operation", string(op)).
		Dimension("Result", result).
		Metric("EditLatencyMs", float64(elapsed.Milliseconds()), metrics.UnitMilliseconds).
		Count("EditCount")
	if outputBytes > 0 {
		rec.Metric("EditOutputBytes", float64(outputBytes), metrics.UnitBytes)
	}
	rec.Flush()
}

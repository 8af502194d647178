// Package agent is the request boundary of the query engine: it maps named
// operations and their arguments onto engine calls and turns the outcome into
// a reply payload or a reason-coded failure.
package agent

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/tfta-mcp-server/internal/cache"
	"github.com/tfta-mcp-server/internal/domain"
	"github.com/tfta-mcp-server/internal/service"
)

// NIL is the value of a result key when a valid query found nothing.
const NIL = "NIL"

// Boolean answers are rendered as these literals
const (
	True  = "TRUE"
	False = "FALSE"
)

// Reply statuses
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
)

// Request is one question addressed to the agent.
type Request struct {
	Operation string `json:"operation" binding:"required"`
	Args      Args   `json:"args"`
}

// Reply is the outcome of one request. A success carries Result keyed by
// result type; a failure carries Reason and, for ambiguous references, a
// Clarification.
type Reply struct {
	RequestID     string                 `json:"request_id"`
	Operation     string                 `json:"operation"`
	Status        string                 `json:"status"`
	Result        map[string]interface{} `json:"result,omitempty"`
	Reason        domain.Reason          `json:"reason,omitempty"`
	Entity        string                 `json:"entity,omitempty"`
	Message       string                 `json:"message,omitempty"`
	Clarification *domain.Clarification  `json:"clarification,omitempty"`
	// LiteratureUnavailable flags a partial answer: literature was asked for
	// but could not be consulted.
	LiteratureUnavailable bool `json:"literature_unavailable,omitempty"`
}

// Failed reports whether the reply is a failure.
func (r Reply) Failed() bool {
	return r.Status == StatusFailure
}

// Agent dispatches requests to the engine.
type Agent struct {
	engine     *service.Engine
	operations map[string]Operation
	logger     *logrus.Logger
}

// NewAgent creates an agent answering with engine.
func NewAgent(engine *service.Engine, logger *logrus.Logger) *Agent {
	a := &Agent{
		engine: engine,
		logger: logger,
	}
	a.operations = make(map[string]Operation)
	for _, op := range a.operationTable() {
		a.operations[op.Name] = op
	}
	return a
}

// Operations describes every supported operation, sorted by name.
func (a *Agent) Operations() []Operation {
	ops := make([]Operation, 0, len(a.operations))
	for _, op := range a.operations {
		ops = append(ops, op)
	}
	sort.Slice(ops, func(i, j int) bool { return ops[i].Name < ops[j].Name })
	return ops
}

// Handle answers one request. It never returns an error: unexpected errors
// become INTERNAL_ERROR failures.
func (a *Agent) Handle(ctx context.Context, req Request) Reply {
	start := time.Now()
	name := strings.ToUpper(strings.TrimSpace(req.Operation))
	reply := Reply{
		RequestID: uuid.New().String(),
		Operation: name,
	}
	logger := a.logger.WithFields(logrus.Fields{
		"request_id": reply.RequestID,
		"operation":  name,
	})

	op, ok := a.operations[name]
	if !ok {
		logger.Warn("Unsupported operation")
		return a.fail(reply, domain.NewFailure(domain.ReasonNoCapability, req.Operation).
			WithMessage("operation %q is not supported", req.Operation))
	}

	args := req.Args
	if args == nil {
		args = Args{}
	}
	result, err := op.handler(ctx, args)
	if err != nil {
		if failure, ok := domain.AsFailure(err); ok {
			logger.WithFields(logrus.Fields{
				"reason":   failure.Reason,
				"entity":   failure.Entity,
				"duration": time.Since(start),
			}).Info("Request answered with failure")
			return a.fail(reply, failure)
		}
		logger.WithError(err).Error("Request failed")
		return a.fail(reply, domain.NewFailure(domain.ReasonInternal, "").
			WithMessage("internal error while answering %s", name))
	}

	reply.Status = StatusSuccess
	reply.Result = result.values
	reply.LiteratureUnavailable = result.literatureUnavailable
	logger.WithField("duration", time.Since(start)).Debug("Request answered")
	return reply
}

func (a *Agent) fail(reply Reply, failure *domain.Failure) Reply {
	reply.Status = StatusFailure
	reply.Reason = failure.Reason
	reply.Entity = failure.Entity
	reply.Message = failure.Message
	reply.Clarification = failure.Clarification
	return reply
}

// Refresh drops the engine's process-wide caches.
func (a *Agent) Refresh() {
	a.engine.Refresh()
}

// CacheStats describes the engine caches.
func (a *Agent) CacheStats() []cache.Stats {
	return a.engine.CacheStats()
}

// Ready reports whether the lookup store is open.
func (a *Agent) Ready() bool {
	return a.engine.StoreAvailable()
}

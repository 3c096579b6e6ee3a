// Package controlsurface exposes the kernel's control and query
// operations over HTTP, grounded on http.NewEchoServer's standard
// middleware stack (logger, recover, CORS, request id), narrowed to the
// endpoints spec §6 names: register_snapshot, promote, create_case,
// step_case, cancel_case, suspend_case, resume_case, get_case_state,
// get_stats, current_snapshot_hash, list_active_cases,
// list_receipts_since, get_policy.
package controlsurface

import (
	"context"
	"encoding/hex"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/chatman-systems/workflowkernel/caseengine"
	"github.com/chatman-systems/workflowkernel/kernelerrors"
	"github.com/chatman-systems/workflowkernel/policy"
	"github.com/chatman-systems/workflowkernel/promotion"
	"github.com/chatman-systems/workflowkernel/receipt"
	"github.com/chatman-systems/workflowkernel/scheduler"
	"github.com/chatman-systems/workflowkernel/snapshot"
)

// Surface wires the kernel's core components onto an Echo router.
type Surface struct {
	store     *snapshot.Store
	engine    *caseengine.Engine
	promoter  *promotion.Pipeline
	policies  *policy.Store
	sched     *scheduler.Scheduler
	log       *receipt.Log

	echo *echo.Echo
}

// Config mirrors http.ServerConfig's recognized fields, narrowed to
// what the control surface needs.
type Config struct {
	Debug          bool
	AllowedOrigins []string
}

func DefaultConfig() Config {
	return Config{Debug: false, AllowedOrigins: []string{"*"}}
}

func New(store *snapshot.Store, engine *caseengine.Engine, promoter *promotion.Pipeline, policies *policy.Store, sched *scheduler.Scheduler, log *receipt.Log, cfg Config) *Surface {
	s := &Surface{store: store, engine: engine, promoter: promoter, policies: policies, sched: sched, log: log}
	s.echo = newEchoServer(cfg)
	s.routes()
	return s
}

func newEchoServer(cfg Config) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Debug = cfg.Debug

	e.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Format: "[${time_rfc3339}] ${status} ${method} ${uri} (${latency_human})\n",
	}))
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	if len(cfg.AllowedOrigins) > 0 {
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{AllowOrigins: cfg.AllowedOrigins}))
	}
	return e
}

func (s *Surface) routes() {
	s.echo.GET("/healthz", s.handleHealth)
	s.echo.POST("/snapshots", s.handleRegisterSnapshot)
	s.echo.POST("/snapshots/:hash/promote", s.handlePromote)
	s.echo.GET("/snapshots/current", s.handleCurrentSnapshotHash)

	s.echo.POST("/cases", s.handleCreateCase)
	s.echo.POST("/cases/:id/step", s.handleStepCase)
	s.echo.POST("/cases/:id/cancel", s.handleCancelCase)
	s.echo.POST("/cases/:id/suspend", s.handleSuspendCase)
	s.echo.POST("/cases/:id/resume", s.handleResumeCase)
	s.echo.GET("/cases/:id/state", s.handleGetCaseState)
	s.echo.GET("/cases", s.handleListActiveCases)

	s.echo.GET("/receipts", s.handleListReceiptsSince)
	s.echo.GET("/policy", s.handleGetPolicy)
	s.echo.GET("/stats", s.handleGetStats)
}

// Start runs the server on addr, blocking until it exits.
func (s *Surface) Start(addr string) error {
	return s.echo.Start(addr)
}

// Shutdown gracefully stops the server.
func (s *Surface) Shutdown(timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return s.echo.Shutdown(ctx)
}

func (s *Surface) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "healthy"})
}

type registerSnapshotRequest struct {
	Tasks      []snapshot.Task      `json:"tasks"`
	Conditions []snapshot.Condition `json:"conditions"`
	Flows      []snapshot.Flow      `json:"flows"`
	Author     string               `json:"author"`
	ParentHash string               `json:"parent_hash,omitempty"`
}

func (s *Surface) handleRegisterSnapshot(c echo.Context) error {
	var req registerSnapshotRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	spec := snapshot.Spec{Tasks: req.Tasks, Conditions: req.Conditions, Flows: req.Flows, Author: req.Author}
	if req.ParentHash != "" {
		if h, err := decodeHash(req.ParentHash); err == nil {
			spec.ParentHash = &h
		}
	}

	hash, err := s.store.Insert(spec)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusCreated, map[string]string{"hash": hex.EncodeToString(hash[:])})
}

func (s *Surface) handlePromote(c echo.Context) error {
	hash, err := decodeHash(c.Param("hash"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid hash")
	}
	if err := s.promoter.Promote(hash); err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "promoted"})
}

func (s *Surface) handleCurrentSnapshotHash(c echo.Context) error {
	snap, err := s.store.Current()
	if err != nil {
		return errorResponse(c, err)
	}
	h := snap.Hash()
	return c.JSON(http.StatusOK, map[string]string{"hash": hex.EncodeToString(h[:])})
}

type createCaseRequest struct {
	SnapshotHash string                 `json:"snapshot_hash"`
	Payload      map[string]interface{} `json:"payload"`
}

func (s *Surface) handleCreateCase(c echo.Context) error {
	var req createCaseRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	hash, err := decodeHash(req.SnapshotHash)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid snapshot_hash")
	}
	id, err := s.engine.CreateCase(hash, req.Payload)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusCreated, map[string]string{"case_id": id})
}

func (s *Surface) handleStepCase(c echo.Context) error {
	state, err := s.engine.Step(c.Param("id"))
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"state": string(state)})
}

func (s *Surface) handleCancelCase(c echo.Context) error {
	if err := s.engine.Cancel(c.Param("id")); err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "cancelled"})
}

func (s *Surface) handleSuspendCase(c echo.Context) error {
	if err := s.engine.Suspend(c.Param("id")); err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "suspended"})
}

func (s *Surface) handleResumeCase(c echo.Context) error {
	if err := s.engine.Resume(c.Param("id")); err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "running"})
}

func (s *Surface) handleGetCaseState(c echo.Context) error {
	state, err := s.engine.GetCaseState(c.Param("id"))
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"state": string(state)})
}

func (s *Surface) handleListActiveCases(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string][]string{"case_ids": s.engine.ListCases()})
}

func (s *Surface) handleListReceiptsSince(c echo.Context) error {
	since := uint64(0)
	if v := c.QueryParam("since"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			since = n
		}
	}
	return c.JSON(http.StatusOK, s.log.ReadSince(since))
}

func (s *Surface) handleGetPolicy(c echo.Context) error {
	return c.JSON(http.StatusOK, s.policies.Current())
}

func (s *Surface) handleGetStats(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"lanes":         s.sched.Stats(),
		"receipt_count": s.log.Len(),
	})
}

func decodeHash(s string) (snapshot.Hash, error) {
	var h snapshot.Hash
	decoded, err := hex.DecodeString(s)
	if err != nil || len(decoded) != len(h) {
		return h, fmt.Errorf("invalid hash %q", s)
	}
	copy(h[:], decoded)
	return h, nil
}

func errorResponse(c echo.Context, err error) error {
	code := http.StatusInternalServerError
	switch kernelerrors.KindOf(err) {
	case kernelerrors.KindSnapshotNotFound, kernelerrors.KindCaseNotFound, kernelerrors.KindPatternNotFound:
		code = http.StatusNotFound
	case kernelerrors.KindPreconditionNotMet, kernelerrors.KindGuardNotReady, kernelerrors.KindDuplicateSnapshot:
		code = http.StatusConflict
	case kernelerrors.KindStructure, kernelerrors.KindNoMatchingBranch:
		code = http.StatusUnprocessableEntity
	case kernelerrors.KindDoctrineBreach, kernelerrors.KindBudgetExceeded:
		code = http.StatusServiceUnavailable
	}
	return c.JSON(code, map[string]string{"error": err.Error()})
}

package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"

	"github.com/relaykit/mailrelay/interfaces"
	er "github.com/relaykit/mailrelay/internal/errors"
	"github.com/relaykit/mailrelay/internal/tracing"
)

type CyclesHandler struct {
	relayService interfaces.RelayService
}

func NewCyclesHandler(relayService interfaces.RelayService) *CyclesHandler {
	return &CyclesHandler{relayService: relayService}
}

// RunForAccount triggers one relay cycle for an account
func (h *CyclesHandler) RunForAccount() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tracing.StartHttpServerTracerSpanWithHeader(c.Request.Context(), "RunCycleForAccount", c.Request.Header)
		defer span.Finish()
		tracing.TagComponentRest(span)

		email := c.Param("email")
		tracing.TagAccount(span, email)

		stats, err := h.relayService.RunCycle(ctx, email)
		if err != nil {
			switch {
			case errors.Is(err, er.ErrAccountNotFound):
				c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			case errors.Is(err, er.ErrAccountInactive):
				c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			case errors.Is(err, er.ErrSourceUnavailable):
				tracing.TraceErr(span, err)
				c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			default:
				tracing.TraceErr(span, err)
				c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			}
			return
		}

		c.JSON(http.StatusOK, stats)
	}
}

// RunAll triggers one relay cycle for every active account
func (h *CyclesHandler) RunAll() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tracing.StartHttpServerTracerSpanWithHeader(c.Request.Context(), "RunAllCycles", c.Request.Header)
		defer span.Finish()
		tracing.TagComponentRest(span)

		results, err := h.relayService.RunAllCycles(ctx)
		if err != nil {
			tracing.TraceErr(span, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, results)
	}
}

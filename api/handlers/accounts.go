package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"

	"github.com/relaykit/mailrelay/internal/enum"
	"github.com/relaykit/mailrelay/internal/models"
	"github.com/relaykit/mailrelay/internal/repository"
	"github.com/relaykit/mailrelay/internal/tracing"
)

type AccountsHandler struct {
	repositories *repository.Repositories
}

func NewAccountsHandler(r *repository.Repositories) *AccountsHandler {
	return &AccountsHandler{repositories: r}
}

// List returns all configured accounts
func (h *AccountsHandler) List() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tracing.StartHttpServerTracerSpanWithHeader(c.Request.Context(), "ListAccounts", c.Request.Header)
		defer span.Finish()
		tracing.TagComponentRest(span)

		accounts, err := h.repositories.AccountRepository.GetAll(ctx)
		if err != nil {
			tracing.TraceErr(span, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, accounts)
	}
}

// Add registers a new account to monitor
func (h *AccountsHandler) Add() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tracing.StartHttpServerTracerSpanWithHeader(c.Request.Context(), "AddAccount", c.Request.Header)
		defer span.Finish()
		tracing.TagComponentRest(span)

		var account models.Account
		if err := c.ShouldBindJSON(&account); err != nil {
			tracing.TraceErr(span, err)
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		if account.EmailAddress == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "emailAddress is required"})
			return
		}
		if account.AccountType != enum.AccountTypeIMAP && account.AccountType != enum.AccountTypeGraph {
			c.JSON(http.StatusBadRequest, gin.H{"error": "accountType must be imap or graph"})
			return
		}
		tracing.TagAccount(span, account.EmailAddress)

		if err := h.repositories.AccountRepository.Create(ctx, &account); err != nil {
			if errors.Is(err, repository.ErrAccountAlreadyExists) {
				c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
				return
			}
			tracing.TraceErr(span, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusCreated, gin.H{"status": "account added", "id": account.ID})
	}
}

// Get returns one account by email address
func (h *AccountsHandler) Get() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tracing.StartHttpServerTracerSpanWithHeader(c.Request.Context(), "GetAccount", c.Request.Header)
		defer span.Finish()
		tracing.TagComponentRest(span)

		email := c.Param("email")
		tracing.TagAccount(span, email)

		account, err := h.repositories.AccountRepository.GetByEmail(ctx, email)
		if err != nil {
			if errors.Is(err, repository.ErrAccountNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
				return
			}
			tracing.TraceErr(span, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, account)
	}
}

// Remove deletes an account and its checkpoint and ledger rows
func (h *AccountsHandler) Remove() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tracing.StartHttpServerTracerSpanWithHeader(c.Request.Context(), "RemoveAccount", c.Request.Header)
		defer span.Finish()
		tracing.TagComponentRest(span)

		email := c.Param("email")
		tracing.TagAccount(span, email)

		if err := h.repositories.AccountRepository.Delete(ctx, email); err != nil {
			if errors.Is(err, repository.ErrAccountNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
				return
			}
			tracing.TraceErr(span, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		if err := h.repositories.CheckpointRepository.Delete(ctx, email); err != nil {
			tracing.TraceErr(span, err)
		}
		if err := h.repositories.ProcessedItemRepository.DeleteForAccount(ctx, email); err != nil {
			tracing.TraceErr(span, err)
		}

		c.JSON(http.StatusOK, gin.H{"status": "account removed", "email": email})
	}
}

// SetActive enables or disables monitoring for an account
func (h *AccountsHandler) SetActive(active bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tracing.StartHttpServerTracerSpanWithHeader(c.Request.Context(), "SetAccountActive", c.Request.Header)
		defer span.Finish()
		tracing.TagComponentRest(span)

		email := c.Param("email")
		tracing.TagAccount(span, email)

		if err := h.repositories.AccountRepository.SetActive(ctx, email, active); err != nil {
			if errors.Is(err, repository.ErrAccountNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
				return
			}
			tracing.TraceErr(span, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, gin.H{"status": "account updated", "email": email, "isActive": active})
	}
}

// Status reports the checkpoint and ledger position for an account
func (h *AccountsHandler) Status() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tracing.StartHttpServerTracerSpanWithHeader(c.Request.Context(), "AccountStatus", c.Request.Header)
		defer span.Finish()
		tracing.TagComponentRest(span)

		email := c.Param("email")
		tracing.TagAccount(span, email)

		if _, err := h.repositories.AccountRepository.GetByEmail(ctx, email); err != nil {
			if errors.Is(err, repository.ErrAccountNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
				return
			}
			tracing.TraceErr(span, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		checkpoint, err := h.repositories.CheckpointRepository.Get(ctx, email)
		if err != nil {
			tracing.TraceErr(span, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		processedCount, err := h.repositories.ProcessedItemRepository.CountForAccount(ctx, email)
		if err != nil {
			tracing.TraceErr(span, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		latest, err := h.repositories.ProcessedItemRepository.LatestProcessed(ctx, email)
		if err != nil {
			tracing.TraceErr(span, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		status := gin.H{
			"email":          email,
			"processedCount": processedCount,
		}
		if checkpoint != nil {
			status["checkpoint"] = gin.H{
				"lastItemId":        checkpoint.LastItemID,
				"lastItemTimestamp": checkpoint.LastItemTimestamp,
			}
		}
		if latest != nil {
			status["lastProcessedAt"] = latest.ProcessedAt
		}

		c.JSON(http.StatusOK, status)
	}
}

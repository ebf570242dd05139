package controller

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"advportal/config"
	"advportal/models"
	"advportal/utils"
)

// creditsCacheTTL bounds how stale the billing dashboard may be.
const creditsCacheTTL = 5 * time.Minute

// CreditsController proxies the agent platform's credit ledger for the
// tenant's agent. The ledger itself is an external collaborator; this is a
// fetch-and-reshape layer with a short-lived cache.
type CreditsController struct {
	Logger *log.Logger
	Client *http.Client
}

func NewCreditsController(logger *log.Logger) *CreditsController {
	return &CreditsController{
		Logger: logger,
		Client: &http.Client{Timeout: 10 * time.Second},
	}
}

type creditsSummary struct {
	Spent   json.RawMessage `json:"spent"`
	Balance json.RawMessage `json:"balance"`
	Period  string          `json:"period"`
}

// GetCredits returns the tenant's credits spent for the current month plus
// the account balance.
func (cc *CreditsController) GetCredits(c *fiber.Ctx) error {
	tenant := c.Locals("tenant").(*models.Tenant)

	if tenant.AgentID == "" {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Agent ID not configured for tenant", nil)
	}
	if config.AppConfig.AgentAPIToken == "" {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Agent API token not configured", nil)
	}

	now := time.Now()
	period := fmt.Sprintf("%d-%02d", now.Year(), int(now.Month()))
	cacheKey := fmt.Sprintf("credits:%s:%s", tenant.ID, period)

	if cached := cacheGet(c, cacheKey); cached != nil {
		var summary creditsSummary
		if err := json.Unmarshal(cached, &summary); err == nil {
			return c.JSON(utils.SuccessResponse(summary))
		}
	}

	spentURL := fmt.Sprintf("%s/agent/%s/credits-spent?year=%d&month=%d",
		config.AppConfig.AgentAPIBase, tenant.AgentID, now.Year(), int(now.Month()))
	spent, err := cc.fetchJSON(spentURL)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadGateway, "Failed to fetch credits spent", err)
	}

	balanceURL := config.AppConfig.AgentAPIBase + "/agent/credits-balance"
	balance, err := cc.fetchJSON(balanceURL)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadGateway, "Failed to fetch credits balance", err)
	}

	summary := creditsSummary{
		Spent:   spent,
		Balance: balance,
		Period:  period,
	}
	if raw, err := json.Marshal(summary); err == nil {
		cacheSet(c, cacheKey, raw, creditsCacheTTL)
	}

	return c.JSON(utils.SuccessResponse(summary))
}

func (cc *CreditsController) fetchJSON(url string) (json.RawMessage, error) {
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+config.AppConfig.AgentAPIToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := cc.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		logrus.WithFields(logrus.Fields{
			"url":    url,
			"status": resp.StatusCode,
		}).Error("agent platform request failed")
		return nil, fmt.Errorf("agent platform returned %d", resp.StatusCode)
	}
	return json.RawMessage(body), nil
}

// cacheGet reads a cached payload; a disabled or failing Redis behaves like
// a miss.
func cacheGet(c *fiber.Ctx, key string) []byte {
	if config.Redis == nil {
		return nil
	}
	data, err := config.Redis.Get(c.Context(), key).Bytes()
	if err != nil {
		return nil
	}
	return data
}

// cacheSet stores a payload on a best-effort basis.
func cacheSet(c *fiber.Ctx, key string, value []byte, ttl time.Duration) {
	if config.Redis == nil {
		return
	}
	if err := config.Redis.Set(c.Context(), key, value, ttl).Err(); err != nil {
		logrus.WithField("key", key).Warn("failed to cache response")
	}
}

package controller

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"advportal/config"
	"advportal/models"
	"advportal/utils"
)

const kpiCacheTTL = 5 * time.Minute

// DashboardController reshapes rows from the tenant's spreadsheet-like
// backend into the KPI dashboard figures. KPI aggregation itself stays
// external; this is a thin fetch-and-reshape proxy.
type DashboardController struct {
	Logger *log.Logger
	Client *http.Client
}

func NewDashboardController(logger *log.Logger) *DashboardController {
	return &DashboardController{
		Logger: logger,
		Client: &http.Client{Timeout: 15 * time.Second},
	}
}

type kpiSummary struct {
	Period            string  `json:"period"`
	TotalLeads        int     `json:"total_leads"`
	MeetingsScheduled int     `json:"meetings_scheduled"`
	MeetingsDone      int     `json:"meetings_done"`
	TotalValue        float64 `json:"total_value"`
	ConversionRate    float64 `json:"conversion_rate"`
}

// GetKPIs fetches the tenant's KPI rows for the requested month (default:
// current) and reduces them to dashboard aggregates.
func (dc *DashboardController) GetKPIs(c *fiber.Ctx) error {
	tenant := c.Locals("tenant").(*models.Tenant)

	if tenant.KPIAPIToken == "" {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "KPI API token not configured for tenant", nil)
	}
	if config.AppConfig.KPIAPIBase == "" {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "KPI API base not configured", nil)
	}

	var input struct {
		Month int `json:"month" validate:"omitempty,min=1,max=12"`
		Year  int `json:"year" validate:"omitempty,min=2000"`
	}
	// Body is optional; default to the current month
	_ = c.BodyParser(&input)
	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	now := time.Now()
	if input.Month == 0 {
		input.Month = int(now.Month())
	}
	if input.Year == 0 {
		input.Year = now.Year()
	}
	period := fmt.Sprintf("%d-%02d", input.Year, input.Month)
	cacheKey := fmt.Sprintf("kpis:%s:%s", tenant.ID, period)

	if cached := cacheGet(c, cacheKey); cached != nil {
		var summary kpiSummary
		if err := json.Unmarshal(cached, &summary); err == nil {
			return c.JSON(utils.SuccessResponse(summary))
		}
	}

	rows, err := dc.fetchRows(tenant.KPIAPIToken)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadGateway, "Failed to fetch KPI data", err)
	}

	summary := reduceKPIs(rows, period)
	if raw, err := json.Marshal(summary); err == nil {
		cacheSet(c, cacheKey, raw, kpiCacheTTL)
	}

	return c.JSON(utils.SuccessResponse(summary))
}

// fetchRows pulls every row from the tenant's backend table. The backend is
// loose about its envelope, so drill into the known variants.
func (dc *DashboardController) fetchRows(token string) ([]map[string]interface{}, error) {
	reqBody, _ := json.Marshal(map[string]interface{}{
		"fields": []string{"*"},
		"limit":  10000,
	})
	req, err := http.NewRequest(http.MethodPost, config.AppConfig.KPIAPIBase+"/object/list", bytes.NewReader(reqBody))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := dc.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("KPI backend returned %d", resp.StatusCode)
	}

	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, err
	}

	var rows []map[string]interface{}
	if envelope.Data != nil {
		if err := json.Unmarshal(envelope.Data, &rows); err == nil {
			return rows, nil
		}
		var nested struct {
			Items []map[string]interface{} `json:"items"`
		}
		if err := json.Unmarshal(envelope.Data, &nested); err == nil && nested.Items != nil {
			return nested.Items, nil
		}
	}
	if err := json.Unmarshal(body, &rows); err == nil {
		return rows, nil
	}
	return nil, fmt.Errorf("unrecognized KPI response shape")
}

// reduceKPIs folds raw rows into the dashboard figures for one period.
func reduceKPIs(rows []map[string]interface{}, period string) kpiSummary {
	summary := kpiSummary{Period: period}
	for _, row := range rows {
		if created, ok := row["created_at"].(string); ok && len(created) >= 7 && created[:7] != period {
			continue
		}
		summary.TotalLeads++
		if rowBool(row, "meeting_scheduled") {
			summary.MeetingsScheduled++
		}
		if rowBool(row, "meeting_done") {
			summary.MeetingsDone++
		}
		summary.TotalValue += rowFloat(row, "opportunity_value")
	}
	if summary.TotalLeads > 0 {
		summary.ConversionRate = float64(summary.MeetingsDone) / float64(summary.TotalLeads)
	}
	return summary
}

func rowBool(row map[string]interface{}, key string) bool {
	v, ok := row[key].(bool)
	return ok && v
}

func rowFloat(row map[string]interface{}, key string) float64 {
	if v, ok := row[key].(float64); ok {
		return v
	}
	return 0
}

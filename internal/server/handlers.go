package server

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/splitit-app/splitit/internal/ledger"
	"github.com/splitit-app/splitit/internal/models"
	"github.com/splitit-app/splitit/internal/money"
	"github.com/splitit-app/splitit/internal/splitter"
)

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// itemPayload accepts either an integer minor-unit price or a human-typed
// token ("12.34", "$12.34") parsed conservatively by the money package.
type itemPayload struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	PriceCents  *int64 `json:"price_cents"`
	Price       string `json:"price"`
}

func (p *itemPayload) priceCents() (int64, error) {
	if p.PriceCents != nil {
		return *p.PriceCents, nil
	}
	return money.ParseCents(p.Price, false)
}

type itemShareResponse struct {
	ItemID      string `json:"item_id"`
	AmountCents int64  `json:"amount_cents"`
}

type shareResponse struct {
	ParticipantID string              `json:"participant_id"`
	TotalCents    int64               `json:"total_cents"`
	TotalDisplay  string              `json:"total_display"`
	Detail        []itemShareResponse `json:"detail,omitempty"`
}

type splitResponse struct {
	PerParticipant     []shareResponse `json:"per_participant"`
	ReceiptTotalCents  int64           `json:"receipt_total_cents"`
	AssignedTotalCents int64           `json:"assigned_total_cents"`
	UnassignedItemIDs  []string        `json:"unassigned_item_ids"`
	Policy             string          `json:"policy"`
}

func toSplitResponse(res *splitter.Result, policy splitter.Policy) splitResponse {
	out := splitResponse{
		ReceiptTotalCents:  res.ReceiptTotalCents,
		AssignedTotalCents: res.AssignedTotalCents,
		UnassignedItemIDs:  res.UnassignedItemIDs,
		Policy:             string(policy),
	}
	for _, share := range res.PerParticipant {
		detail := make([]itemShareResponse, len(share.Detail))
		for i, d := range share.Detail {
			detail[i] = itemShareResponse{ItemID: d.ItemID, AmountCents: d.AmountCents}
		}
		out.PerParticipant = append(out.PerParticipant, shareResponse{
			ParticipantID: share.ParticipantID,
			TotalCents:    share.TotalCents,
			TotalDisplay:  money.FormatCents(share.TotalCents),
			Detail:        detail,
		})
	}
	return out
}

type calculateRequest struct {
	Participants []struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"participants"`
	Items       []itemPayload       `json:"items"`
	Assignments map[string][]string `json:"assignments"`
}

// handleCalculate runs the split engine over the request body without
// persisting anything. Partially assigned input is fine; unassigned items
// come back in unassigned_item_ids.
func (s *Server) handleCalculate(c echo.Context) error {
	var req calculateRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "request body must be JSON")
	}
	if len(req.Participants) == 0 {
		return badRequest(c, "'participants' must be a non-empty list")
	}

	items := make([]splitter.Item, len(req.Items))
	for i, p := range req.Items {
		price, err := p.priceCents()
		if err != nil {
			return badRequest(c, "item '"+p.ID+"': "+err.Error())
		}
		items[i] = splitter.Item{ID: p.ID, Description: p.Description, PriceCents: price}
	}

	participants := make([]splitter.Participant, len(req.Participants))
	for i, p := range req.Participants {
		participants[i] = splitter.Participant{ID: p.ID, Name: p.Name}
	}

	res, err := splitter.Compute(items, participants, req.Assignments, s.policy)
	if err != nil {
		return badRequest(c, err.Error())
	}
	splitsComputed.Inc()

	return c.JSON(http.StatusOK, toSplitResponse(res, s.policy))
}

type participantRequest struct {
	DisplayName string `json:"display_name"`
}

type participantResponse struct {
	ID                string `json:"id"`
	DisplayName       string `json:"display_name"`
	RunningTotalCents int64  `json:"running_total_cents"`
}

func (s *Server) handleCreateParticipant(c echo.Context) error {
	var req participantRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "request body must be JSON")
	}
	if req.DisplayName == "" {
		return badRequest(c, "'display_name' is required")
	}

	p, err := s.store.UpsertParticipant(c.Request().Context(), req.DisplayName)
	if err != nil {
		slog.Error("participant upsert failed", "display_name", req.DisplayName, "error", err)
		return jsonError(c, err)
	}
	return c.JSON(http.StatusCreated, participantResponse{p.ID, p.DisplayName, p.RunningTotalCents})
}

func (s *Server) handleListParticipants(c echo.Context) error {
	list, err := s.store.ListParticipants(c.Request().Context())
	if err != nil {
		slog.Error("participant list failed", "error", err)
		return jsonError(c, err)
	}
	out := make([]participantResponse, len(list))
	for i, p := range list {
		out[i] = participantResponse{p.ID, p.DisplayName, p.RunningTotalCents}
	}
	return c.JSON(http.StatusOK, map[string]any{"participants": out})
}

func (s *Server) handleOutstanding(c echo.Context) error {
	ctx := c.Request().Context()
	id := c.Param("id")

	p, err := s.store.GetParticipant(ctx, id)
	if err != nil {
		return jsonError(c, err)
	}
	outstanding, err := s.store.Outstanding(ctx, id)
	if err != nil {
		return jsonError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]any{
		"participant_id":      p.ID,
		"display_name":        p.DisplayName,
		"running_total_cents": p.RunningTotalCents,
		"outstanding_cents":   outstanding,
		"outstanding_display": money.FormatCents(outstanding),
	})
}

type receiptRequest struct {
	Description string        `json:"description"`
	Items       []itemPayload `json:"items"`
}

type receiptResponse struct {
	ID          string         `json:"id"`
	Description string         `json:"description"`
	Items       []itemResponse `json:"items"`
	TotalCents  int64          `json:"total_cents"`
	CreatedAt   int64          `json:"created_at"`
}

type itemResponse struct {
	ID           string `json:"id"`
	Description  string `json:"description"`
	PriceCents   int64  `json:"price_cents"`
	PriceDisplay string `json:"price_display"`
}

func toReceiptResponse(r *models.Receipt) receiptResponse {
	out := receiptResponse{
		ID:          r.ID,
		Description: r.Description,
		CreatedAt:   r.CreatedAt,
	}
	for _, item := range r.Items {
		out.TotalCents += item.PriceCents
		out.Items = append(out.Items, itemResponse{
			ID:           item.ID,
			Description:  item.Description,
			PriceCents:   item.PriceCents,
			PriceDisplay: money.FormatCents(item.PriceCents),
		})
	}
	return out
}

func (r *receiptRequest) toItems() ([]models.Item, error) {
	items := make([]models.Item, len(r.Items))
	for i, p := range r.Items {
		price, err := p.priceCents()
		if err != nil {
			return nil, err
		}
		items[i] = models.Item{Description: p.Description, PriceCents: price}
	}
	return items, nil
}

func (s *Server) handleCreateReceipt(c echo.Context) error {
	var req receiptRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "request body must be JSON")
	}
	items, err := req.toItems()
	if err != nil {
		return badRequest(c, err.Error())
	}

	receipt := &models.Receipt{
		OwnerID:     userID(c),
		Description: req.Description,
		Items:       items,
	}
	if err := s.store.CreateReceipt(c.Request().Context(), receipt); err != nil {
		slog.Error("receipt create failed", "error", err)
		return jsonError(c, err)
	}

	slog.Info("receipt created", "receipt_id", receipt.ID, "items", len(receipt.Items))
	return c.JSON(http.StatusCreated, toReceiptResponse(receipt))
}

func (s *Server) handleGetReceipt(c echo.Context) error {
	receipt, err := s.store.GetReceipt(c.Request().Context(), c.Param("id"))
	if err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusOK, toReceiptResponse(receipt))
}

// handleReplaceItems swaps out a receipt's items wholesale. Any prior split
// is invalidated: the store reverses old allocations in the same
// transaction, so the receipt comes back unsplit.
func (s *Server) handleReplaceItems(c echo.Context) error {
	var req receiptRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "request body must be JSON")
	}
	items, err := req.toItems()
	if err != nil {
		return badRequest(c, err.Error())
	}

	ctx := c.Request().Context()
	receiptID := c.Param("id")
	if err := s.store.ReplaceReceiptItems(ctx, receiptID, items); err != nil {
		slog.Error("item replace failed", "receipt_id", receiptID, "error", err)
		return jsonError(c, err)
	}

	receipt, err := s.store.GetReceipt(ctx, receiptID)
	if err != nil {
		return jsonError(c, err)
	}
	slog.Info("receipt items replaced", "receipt_id", receiptID, "items", len(receipt.Items))
	return c.JSON(http.StatusOK, toReceiptResponse(receipt))
}

type splitRequest struct {
	Assignments map[string][]string `json:"assignments"`
}

// handleSplitReceipt computes the split for the receipt's current
// assignments and replaces its allocations atomically. Repeating the call
// with the same assignments is a no-op on running totals.
func (s *Server) handleSplitReceipt(c echo.Context) error {
	var req splitRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "request body must be JSON")
	}

	ctx := c.Request().Context()
	receipt, err := s.store.GetReceipt(ctx, c.Param("id"))
	if err != nil {
		return jsonError(c, err)
	}

	directory, err := s.store.ListParticipants(ctx)
	if err != nil {
		return jsonError(c, err)
	}

	items := make([]splitter.Item, len(receipt.Items))
	itemIDs := make([]string, len(receipt.Items))
	for i, item := range receipt.Items {
		items[i] = splitter.Item{ID: item.ID, Description: item.Description, PriceCents: item.PriceCents}
		itemIDs[i] = item.ID
	}
	participants := make([]splitter.Participant, len(directory))
	for i, p := range directory {
		participants[i] = splitter.Participant{ID: p.ID, Name: p.DisplayName}
	}

	res, err := splitter.Compute(items, participants, req.Assignments, s.policy)
	if err != nil {
		return badRequest(c, err.Error())
	}
	splitsComputed.Inc()

	var allocations []models.Allocation
	for _, share := range res.PerParticipant {
		for _, d := range share.Detail {
			allocations = append(allocations, models.Allocation{
				ParticipantID: share.ParticipantID,
				ItemID:        d.ItemID,
				AmountCents:   d.AmountCents,
			})
		}
	}

	if err := s.store.ReplaceAllocations(ctx, itemIDs, allocations); err != nil {
		var verr *ledger.ValidationError
		if errors.As(err, &verr) {
			replacesRejected.Inc()
		}
		slog.Error("allocation replace failed", "receipt_id", receipt.ID, "error", err)
		return jsonError(c, err)
	}

	slog.Info("receipt split",
		"receipt_id", receipt.ID,
		"allocations", len(allocations),
		"unassigned_items", len(res.UnassignedItemIDs),
	)
	return c.JSON(http.StatusOK, toSplitResponse(res, s.policy))
}

// handleSummary reports each participant's total for one receipt from the
// persisted allocations.
func (s *Server) handleSummary(c echo.Context) error {
	ctx := c.Request().Context()
	receipt, err := s.store.GetReceipt(ctx, c.Param("id"))
	if err != nil {
		return jsonError(c, err)
	}

	allocations, err := s.store.ListAllocationsByReceipt(ctx, receipt.ID)
	if err != nil {
		return jsonError(c, err)
	}
	directory, err := s.store.ListParticipants(ctx)
	if err != nil {
		return jsonError(c, err)
	}
	names := make(map[string]string, len(directory))
	for _, p := range directory {
		names[p.ID] = p.DisplayName
	}

	totals := make(map[string]int64)
	for _, a := range allocations {
		totals[a.ParticipantID] += a.AmountCents
	}

	type summaryRow struct {
		ParticipantID string `json:"participant_id"`
		DisplayName   string `json:"display_name"`
		TotalCents    int64  `json:"total_cents"`
		TotalDisplay  string `json:"total_display"`
	}
	var rows []summaryRow
	for _, p := range directory {
		total, ok := totals[p.ID]
		if !ok {
			continue
		}
		rows = append(rows, summaryRow{p.ID, p.DisplayName, total, money.FormatCents(total)})
	}

	var receiptTotal int64
	for _, item := range receipt.Items {
		receiptTotal += item.PriceCents
	}
	return c.JSON(http.StatusOK, map[string]any{
		"receipt_id":          receipt.ID,
		"receipt_total_cents": receiptTotal,
		"participants":        rows,
	})
}

type settlementRequest struct {
	ParticipantID string `json:"participant_id"`
	AmountCents   *int64 `json:"amount_cents"`
	Amount        string `json:"amount"`
	Note          string `json:"note"`
}

func (s *Server) handleCreateSettlement(c echo.Context) error {
	var req settlementRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "request body must be JSON")
	}
	if req.ParticipantID == "" {
		return badRequest(c, "'participant_id' is required")
	}

	var amount int64
	if req.AmountCents != nil {
		amount = *req.AmountCents
	} else {
		parsed, err := money.ParseCents(req.Amount, false)
		if err != nil {
			return badRequest(c, err.Error())
		}
		amount = parsed
	}

	ctx := c.Request().Context()
	settlement := &models.Settlement{
		ParticipantID: req.ParticipantID,
		AmountCents:   amount,
		Note:          req.Note,
	}
	if err := s.store.RecordSettlement(ctx, settlement); err != nil {
		slog.Error("settlement record failed", "participant_id", req.ParticipantID, "error", err)
		return jsonError(c, err)
	}

	outstanding, err := s.store.Outstanding(ctx, req.ParticipantID)
	if err != nil {
		return jsonError(c, err)
	}

	slog.Info("settlement recorded",
		"settlement_id", settlement.ID,
		"participant_id", req.ParticipantID,
		"amount_cents", amount,
	)
	return c.JSON(http.StatusCreated, map[string]any{
		"id":                  settlement.ID,
		"participant_id":      settlement.ParticipantID,
		"amount_cents":        settlement.AmountCents,
		"note":                settlement.Note,
		"created_at":          settlement.CreatedAt,
		"outstanding_cents":   outstanding,
		"outstanding_display": money.FormatCents(outstanding),
	})
}

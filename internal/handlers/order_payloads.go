package handlers

import (
	domain "github.com/parcelio/api/internal/domain"
)

type orderListResponse struct {
	Items         []orderPayload `json:"items"`
	NextPageToken string         `json:"next_page_token,omitempty"`
}

type orderPayload struct {
	ID                  string                      `json:"id"`
	OrderNumber         string                      `json:"order_number"`
	BusinessID          string                      `json:"business_id"`
	CustomerName        string                      `json:"customer_name,omitempty"`
	CustomerPhone       string                      `json:"customer_phone,omitempty"`
	Status              string                      `json:"status"`
	StatusCategory      string                      `json:"status_category"`
	StatusHistory       []statusHistoryPayload      `json:"status_history"`
	Stages              orderStagesPayload          `json:"stages"`
	Shipping            orderShippingPayload        `json:"shipping"`
	Fees                int64                       `json:"fees"`
	ReturnFees          int64                       `json:"return_fees,omitempty"`
	CancellationFees    int64                       `json:"cancellation_fees,omitempty"`
	Attempts            int                         `json:"attempts"`
	UnavailableReasons  []string                    `json:"unavailable_reasons,omitempty"`
	CourierID           *string                     `json:"courier_id,omitempty"`
	CourierHistory      []courierHistoryPayload     `json:"courier_history,omitempty"`
	ScheduledRetryAt    *string                     `json:"scheduled_retry_at,omitempty"`
	CompletedDate       *string                     `json:"completed_date,omitempty"`
	MoneyReleaseDate    *string                     `json:"money_release_date,omitempty"`
	FinancialProcessing financialProcessingPayload  `json:"financial_processing"`
	Revision            int64                       `json:"revision"`
	CreatedAt           string                      `json:"created_at"`
	UpdatedAt           string                      `json:"updated_at"`
}

type statusHistoryPayload struct {
	Status     string `json:"status"`
	Category   string `json:"category"`
	OccurredAt string `json:"occurred_at"`
}

type courierHistoryPayload struct {
	CourierID  string `json:"courier_id"`
	Action     string `json:"action"`
	Notes      string `json:"notes,omitempty"`
	AssignedAt string `json:"assigned_at"`
}

type stagePayload struct {
	IsCompleted bool    `json:"is_completed"`
	CompletedAt *string `json:"completed_at,omitempty"`
	Notes       string  `json:"notes,omitempty"`
}

type orderStagesPayload struct {
	OrderPlaced        stagePayload `json:"order_placed"`
	Packed             stagePayload `json:"packed"`
	Shipping           stagePayload `json:"shipping"`
	InProgress         stagePayload `json:"in_progress"`
	OutForDelivery     stagePayload `json:"out_for_delivery"`
	Delivered          stagePayload `json:"delivered"`
	ReturnInitiated    stagePayload `json:"return_initiated"`
	ReturnAssigned     stagePayload `json:"return_assigned"`
	ReturnPickedUp     stagePayload `json:"return_picked_up"`
	ReturnAtWarehouse  stagePayload `json:"return_at_warehouse"`
	ReturnInspection   stagePayload `json:"return_inspection"`
	ReturnProcessing   stagePayload `json:"return_processing"`
	ReturnToBusiness   stagePayload `json:"return_to_business"`
	ReturnCompleted    stagePayload `json:"return_completed"`
	ExchangePickup     stagePayload `json:"exchange_pickup"`
	ExchangeDelivery   stagePayload `json:"exchange_delivery"`
	CollectionComplete stagePayload `json:"collection_complete"`
}

type orderShippingPayload struct {
	OrderType           string  `json:"order_type"`
	AmountType          string  `json:"amount_type,omitempty"`
	Amount              int64   `json:"amount"`
	City                string  `json:"city"`
	IsExpress           bool    `json:"is_express"`
	LinkedDeliverOrder  *string `json:"linked_deliver_order,omitempty"`
	LinkedReturnOrder   *string `json:"linked_return_order,omitempty"`
	OriginalOrderNumber *string `json:"original_order_number,omitempty"`
	ReturnReason        *string `json:"return_reason,omitempty"`
	ReturnInitiatedAt   *string `json:"return_initiated_at,omitempty"`
	IsPartialReturn     bool    `json:"is_partial_return,omitempty"`
	OriginalItemCount   int     `json:"original_item_count,omitempty"`
	PartialItemCount    int     `json:"partial_item_count,omitempty"`
}

type financialProcessingPayload struct {
	IsProcessed bool    `json:"is_processed"`
	ProcessedAt *string `json:"processed_at,omitempty"`
	ProcessedBy string  `json:"processed_by,omitempty"`
	BatchID     string  `json:"batch_id,omitempty"`
	Notes       string  `json:"notes,omitempty"`
}

func buildOrderPayload(order domain.Order) orderPayload {
	return orderPayload{
		ID:                  order.ID,
		OrderNumber:         order.OrderNumber,
		BusinessID:          order.BusinessID,
		CustomerName:        order.CustomerName,
		CustomerPhone:       order.CustomerPhone,
		Status:              order.Status,
		StatusCategory:      string(order.StatusCategory),
		StatusHistory:       buildStatusHistory(order.StatusHistory),
		Stages:              buildOrderStages(order.Stages),
		Shipping:            buildOrderShipping(order.Shipping),
		Fees:                order.Fees,
		ReturnFees:          order.ReturnFees,
		CancellationFees:    order.CancellationFees,
		Attempts:            order.Attempts,
		UnavailableReasons:  order.UnavailableReasons,
		CourierID:           order.CourierID,
		CourierHistory:      buildCourierHistory(order.CourierHistory),
		ScheduledRetryAt:    pointerTime(order.ScheduledRetryAt),
		CompletedDate:       pointerTime(order.CompletedDate),
		MoneyReleaseDate:    pointerTime(order.MoneyReleaseDate),
		FinancialProcessing: buildFinancialProcessing(order.FinancialProcessing),
		Revision:            order.Revision,
		CreatedAt:           formatTime(order.CreatedAt),
		UpdatedAt:           formatTime(order.UpdatedAt),
	}
}

func buildStatusHistory(entries []domain.StatusHistoryEntry) []statusHistoryPayload {
	out := make([]statusHistoryPayload, 0, len(entries))
	for _, entry := range entries {
		out = append(out, statusHistoryPayload{
			Status:     entry.Status,
			Category:   string(entry.Category),
			OccurredAt: formatTime(entry.OccurredAt),
		})
	}
	return out
}

func buildCourierHistory(entries []domain.CourierHistoryEntry) []courierHistoryPayload {
	if len(entries) == 0 {
		return nil
	}
	out := make([]courierHistoryPayload, 0, len(entries))
	for _, entry := range entries {
		out = append(out, courierHistoryPayload{
			CourierID:  entry.CourierID,
			Action:     entry.Action,
			Notes:      entry.Notes,
			AssignedAt: formatTime(entry.AssignedAt),
		})
	}
	return out
}

func buildStage(stage domain.Stage) stagePayload {
	return stagePayload{
		IsCompleted: stage.IsCompleted,
		CompletedAt: pointerTime(stage.CompletedAt),
		Notes:       stage.Notes,
	}
}

func buildOrderStages(stages domain.OrderStages) orderStagesPayload {
	return orderStagesPayload{
		OrderPlaced:        buildStage(stages.OrderPlaced),
		Packed:             buildStage(stages.Packed),
		Shipping:           buildStage(stages.Shipping),
		InProgress:         buildStage(stages.InProgress),
		OutForDelivery:     buildStage(stages.OutForDelivery),
		Delivered:          buildStage(stages.Delivered),
		ReturnInitiated:    buildStage(stages.ReturnInitiated),
		ReturnAssigned:     buildStage(stages.ReturnAssigned),
		ReturnPickedUp:     buildStage(stages.ReturnPickedUp),
		ReturnAtWarehouse:  buildStage(stages.ReturnAtWarehouse),
		ReturnInspection:   buildStage(stages.ReturnInspection),
		ReturnProcessing:   buildStage(stages.ReturnProcessing),
		ReturnToBusiness:   buildStage(stages.ReturnToBusiness),
		ReturnCompleted:    buildStage(stages.ReturnCompleted),
		ExchangePickup:     buildStage(stages.ExchangePickup),
		ExchangeDelivery:   buildStage(stages.ExchangeDelivery),
		CollectionComplete: buildStage(stages.CollectionComplete),
	}
}

func buildOrderShipping(shipping domain.OrderShipping) orderShippingPayload {
	return orderShippingPayload{
		OrderType:           string(shipping.OrderType),
		AmountType:          shipping.AmountType,
		Amount:              shipping.Amount,
		City:                shipping.City,
		IsExpress:           shipping.IsExpress,
		LinkedDeliverOrder:  shipping.LinkedDeliverOrder,
		LinkedReturnOrder:   shipping.LinkedReturnOrder,
		OriginalOrderNumber: shipping.OriginalOrderNumber,
		ReturnReason:        shipping.ReturnReason,
		ReturnInitiatedAt:   pointerTime(shipping.ReturnInitiatedAt),
		IsPartialReturn:     shipping.IsPartialReturn,
		OriginalItemCount:   shipping.OriginalItemCount,
		PartialItemCount:    shipping.PartialItemCount,
	}
}

func buildFinancialProcessing(fp domain.FinancialProcessing) financialProcessingPayload {
	return financialProcessingPayload{
		IsProcessed: fp.IsProcessed,
		ProcessedAt: pointerTime(fp.ProcessedAt),
		ProcessedBy: fp.ProcessedBy,
		BatchID:     fp.BatchID,
		Notes:       fp.Notes,
	}
}

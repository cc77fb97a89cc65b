package http

import (
	"time"

	billing "shop-billing/internal/billing/domain"
	"shop-billing/internal/billing/interfaces"
)

type shopDTO struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	ParentID  *string   `json:"parent_id"`
	CreatedAt time.Time `json:"created_at"`
}

type billDTO struct {
	SubjectID   string `json:"subject_id"`
	Granularity string `json:"granularity"`
	Period      string `json:"period"`
	Amount      int64  `json:"amount"`
	AmountText  string `json:"amount_text"`
	Count       int64  `json:"count"`
}

func toShopDTO(shop billing.Shop) shopDTO {
	dto := shopDTO{ID: shop.ID, Name: shop.Name, CreatedAt: shop.CreatedAt}
	if shop.ParentID != "" {
		parentID := shop.ParentID
		dto.ParentID = &parentID
	}
	return dto
}

func toShopDTOs(shops []billing.Shop) []shopDTO {
	result := make([]shopDTO, 0, len(shops))
	for _, shop := range shops {
		result = append(result, toShopDTO(shop))
	}
	return result
}

func toBillDTO(bill billing.Bill) billDTO {
	return billDTO{
		SubjectID:   bill.SubjectID,
		Granularity: string(bill.Granularity),
		Period:      interfaces.PeriodLabel(bill.Granularity, bill.PeriodStart),
		Amount:      int64(bill.Amount),
		AmountText:  bill.Amount.String(),
		Count:       bill.Count,
	}
}

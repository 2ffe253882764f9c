package models

type Prize struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

var (
	prizeTop = Prize{Name: "Главный приз", Value: "20 000 ₽ Золотое яблоко"}
	prizeMid = Prize{Name: "Бьюти услуга на выбор", Value: "Приз можно заменить на Telegram Premium"}
	prizeLow = Prize{Name: "Футболка", Value: "Футболка GTM"}
)

// PrizeForPlace maps a place number to its fixed prize.
func PrizeForPlace(place int) Prize {
	switch {
	case place == 1:
		return prizeTop
	case place >= 2 && place <= 5:
		return prizeMid
	default:
		return prizeLow
	}
}

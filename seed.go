package main

import (
	"time"

	"railway/internal/domain/models"
	"railway/internal/repositories"
)

// seedDemo loads one train with a week of inventory for STORAGE=memory.
func seedDemo(s *repositories.MemoryStore, now time.Time) {
	stations := []string{"北京南", "天津南", "济南西", "南京南", "上海虹桥"}
	s.AddTrain("G27", stations...)

	type leg struct {
		second, first, business models.Money
		km                      int
	}
	legs := []leg{
		{models.Yuan(55), models.Yuan(90), models.Yuan(175), 122},
		{models.Yuan(130), models.Yuan(215), models.Yuan(410), 284},
		{models.Yuan(245), models.Yuan(400), models.Yuan(775), 617},
		{models.Yuan(135), models.Yuan(225), models.Yuan(430), 295},
	}
	for i, l := range legs {
		from, to := stations[i], stations[i+1]
		s.SetFare("G27", from, to, models.SeatSecondClass, l.second, l.km)
		s.SetFare("G27", from, to, models.SeatFirstClass, l.first, l.km)
		s.SetFare("G27", from, to, models.SeatBusiness, l.business, l.km)
		for d := 0; d < 7; d++ {
			date := now.AddDate(0, 0, d).Format("2006-01-02")
			s.SetInventory("G27", from, to, models.SeatSecondClass, date, 100)
			s.SetInventory("G27", from, to, models.SeatFirstClass, date, 28)
			s.SetInventory("G27", from, to, models.SeatBusiness, date, 10)
		}
	}

	s.AddPassenger(models.Passenger{OwnerID: 1, Name: "张三", Phone: "13800138000", IDCardType: "身份证", IDCardNumber: "110101199001011234", DiscountType: "成人"})
	s.AddPassenger(models.Passenger{OwnerID: 1, Name: "李四", Phone: "13900139000", IDCardType: "身份证", IDCardNumber: "110101199202021234", DiscountType: "学生"})
}

package dataset

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/shopspring/decimal"
)

var (
	sampleCompanies = []string{"شركة النقل السريع", "مجموعة الخليج للإنشاءات", "مؤسسة الدوحة للخدمات", "شركة اللؤلؤة للتجارة", "الوسيل للاستشارات"}
	sampleTypes     = []string{"مساهمة", "ذات مسؤولية محدودة", "تضامنية"}
	sampleSectors   = []string{"النقل", "الإنشاءات", "الخدمات", "التجارة", "الاستشارات"}
	sampleCities    = []string{"الدوحة", "الريان", "الوكرة", "الخور"}
	sampleKinds     = []string{"فاتورة أجور", "فاتورة خدمات", "فاتورة توريد"}
	sampleMethods   = []string{"بطاقة", "تحويل بنكي", "نقداً"}
	sampleRisks     = []string{"منخفض", "متوسط", "مرتفع"}
	taxRate         = decimal.RequireFromString("0.05")
)

// SampleInvoices returns a header row followed by n synthetic invoices. The
// same seed always yields the same rows.
func SampleInvoices(n int, seed int64) [][]string {
	r := rand.New(rand.NewSource(seed))
	pick := func(xs []string) string { return xs[r.Intn(len(xs))] }
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	rows := make([][]string, 0, n+1)
	rows = append(rows, append([]string(nil), InvoiceColumns...))
	for i := 0; i < n; i++ {
		issued := start.AddDate(0, 0, r.Intn(365))
		amount := decimal.New(int64(1000+r.Intn(99000)), 0)
		tax := amount.Mul(taxRate).Round(2)
		total := amount.Add(tax)

		status, gap := "مدفوعة", decimal.Zero
		if r.Intn(3) == 0 {
			status, gap = "غير مدفوعة", tax
		}

		rows = append(rows, []string{
			pick(sampleCompanies),
			pick(sampleTypes),
			pick(sampleSectors),
			fmt.Sprintf("%d", 100000+r.Intn(900000)),
			fmt.Sprintf("شارع %d، مكتب %d", 1+r.Intn(300), 1+r.Intn(50)),
			pick(sampleCities),
			fmt.Sprintf("المنطقة %d", 1+r.Intn(98)),
			fmt.Sprintf("+974 %04d %04d", r.Intn(10000), r.Intn(10000)),
			fmt.Sprintf("billing%d@example.qa", i+1),
			fmt.Sprintf("%.6f", 25.2+r.Float64()*0.5),
			fmt.Sprintf("%.6f", 51.4+r.Float64()*0.2),
			fmt.Sprintf("INV-%d", 1000+i),
			issued.Format("2006-01-02"),
			issued.AddDate(0, 0, 30).Format("2006-01-02"),
			pick(sampleKinds),
			amount.StringFixed(2),
			tax.StringFixed(2),
			total.StringFixed(2),
			status,
			pick(sampleMethods),
			pick(sampleRisks),
			gap.StringFixed(2),
		})
	}
	return rows
}

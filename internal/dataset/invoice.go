package dataset

// InvoiceColumns are the 22 headers of the invoice worksheet, in sheet order.
var InvoiceColumns = []string{
	"اسم الشركة",
	"نوع الشركة",
	"القطاع",
	"رقم السجل التجاري",
	"العنوان",
	"المدينة",
	"المنطقة",
	"رقم الهاتف",
	"البريد الإلكتروني",
	"خط العرض",
	"خط الطول",
	"رقم الفاتورة",
	"تاريخ الفاتورة",
	"تاريخ الاستحقاق",
	"نوع الفاتورة",
	"المبلغ (ر.ق)",
	"الضريبة (5%)",
	"المبلغ الإجمالي (ر.ق)",
	"حالة الدفع",
	"طريقة الدفع",
	"تقييم مخاطر الفاتورة",
	"فجوة الإيرادات/الضريبة المحتملة (ر.ق)",
}

// DataDictionary documents the invoice columns. It is sent verbatim with every
// question so the model can map Arabic headers to their meaning.
const DataDictionary = `
| Column Name                        | Description                                                                                          |
|------------------------------------|------------------------------------------------------------------------------------------------------|
| اسم الشركة                          | The legal name of the company                                                                        |
| نوع الشركة                          | Type of the company (e.g., مساهمة for a joint-stock company)                                         |
| القطاع                              | Industry sector (e.g., النقل for Transportation)                                                     |
| رقم السجل التجاري                  | Commercial registration number of the company                                                         |
| العنوان                            | Full postal address, including street and suite                                                      |
| المدينة                             | City where the company is located (e.g., الدوحة)                                                     |
| المنطقة                             | Administrative region within the city (e.g., المنطقة 91)                                              |
| رقم الهاتف                          | Contact phone number                                                                                  |
| البريد الإلكتروني                   | Contact email address                                                                                 |
| خط العرض                            | Latitude coordinate in decimal degrees                                                               |
| خط الطول                            | Longitude coordinate in decimal degrees                                                              |
| رقم الفاتورة                        | Invoice identifier (e.g., INV-1000)                                                                  |
| تاريخ الفاتورة                      | Date when the invoice was issued (YYYY-MM-DD)                                                        |
| تاريخ الاستحقاق                    | Invoice due date (YYYY-MM-DD)                                                                        |
| نوع الفاتورة                        | Category of the invoice (e.g., فاتورة أجور, فاتورة خدمات)                                              |
| المبلغ (ر.ق)                       | Invoice amount in Qatari Riyal before tax                                                            |
| الضريبة (5%)                       | Tax amount at 5% of the invoice value                                                                 |
| المبلغ الإجمالي (ر.ق)              | Total amount in Qatari Riyal including tax                                                            |
| حالة الدفع                         | Payment status (مدفوعة for paid, غير مدفوعة for unpaid)                                               |
| طريقة الدفع                         | Payment method (e.g., بطاقة, تحويل بنكي, نقداً)                                                      |
| تقييم مخاطر الفاتورة                | Risk rating of the invoice (منخفض for Low, متوسط for Medium, مرتفع for High)                         |
| فجوة الإيرادات/الضريبة المحتملة (ر.ق) | Potential revenue/tax gap in Qatari Riyal if the invoice remains unpaid                              |
`

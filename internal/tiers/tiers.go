// Package tiers описывает уровни доступа (тарифы) платформы и статические таблицы,
// связывающие каждый уровень с ценой, квотой обращений в поддержку, набором дашбордов
// и путями повышения тарифа.
//
// Таблицы являются данными, а не кодом: каждая из них обязана содержать запись для
// каждого значения Tier, что проверяется тестами пакета.
package tiers

// Tier идентификатор уровня доступа пользователя.
type Tier string

const (
	Prospect         Tier = "prospect"
	User             Tier = "user"
	ClientStarter    Tier = "client_starter"
	ClientPro        Tier = "client_pro"
	ClientEnterprise Tier = "client_enterprise"
	Employee         Tier = "employee"
	Admin            Tier = "admin"
)

// Dashboard идентификатор функционального раздела платформы.
type Dashboard string

const (
	Rise      Dashboard = "rise"
	CoWork    Dashboard = "cowork"
	Creative  Dashboard = "creative"
	Clients   Dashboard = "clients"
	Prospects Dashboard = "prospects"
	Support   Dashboard = "support"
	AdminDash Dashboard = "admin"
)

// BillingCycle периодичность списания оплаты за тариф.
type BillingCycle string

const (
	BillingNone    BillingCycle = "none"
	BillingMonthly BillingCycle = "monthly"
)

const (
	// BasePaidPriceUSD цена базового платного тарифа, используется как сумма оплаты
	// по умолчанию, если платёжный канал не сообщил сумму.
	BasePaidPriceUSD = 17.99

	StarterThresholdUSD    = 222.00
	ProThresholdUSD        = 500.00
	EnterpriseThresholdUSD = 1500.00
)

// Plan описывает параметры тарифа.
type Plan struct {
	Name         string
	Description  string
	PriceUSD     float64
	BillingCycle BillingCycle
	// MaxSupportRequests nil означает отсутствие ограничения, 0 означает, что поддержка недоступна.
	MaxSupportRequests *int
}

// All возвращает все уровни в порядке возрастания приоритета.
func All() []Tier {
	return []Tier{Prospect, User, ClientStarter, ClientPro, ClientEnterprise, Employee, Admin}
}

// Dashboards возвращает все дашборды в фиксированном порядке отображения.
func Dashboards() []Dashboard {
	return []Dashboard{Rise, CoWork, Creative, Clients, Prospects, Support, AdminDash}
}

func quota(n int) *int { return &n }

var plans = map[Tier]Plan{
	Prospect: {
		Name:               "Prospect",
		Description:        "Free access to Rise wellness content. Start a 7-day trial to explore the platform.",
		PriceUSD:           0,
		BillingCycle:       BillingNone,
		MaxSupportRequests: quota(0),
	},
	User: {
		Name:               "User",
		Description:        "Full access to Rise, CoWork and Creative dashboards.",
		PriceUSD:           BasePaidPriceUSD,
		BillingCycle:       BillingMonthly,
		MaxSupportRequests: quota(0),
	},
	ClientStarter: {
		Name:               "Client Starter",
		Description:        "Everything in User plus the Support dashboard with 15 requests per month.",
		PriceUSD:           StarterThresholdUSD,
		BillingCycle:       BillingMonthly,
		MaxSupportRequests: quota(15),
	},
	ClientPro: {
		Name:               "Client Pro",
		Description:        "Everything in Client Starter with 50 support requests per month.",
		PriceUSD:           ProThresholdUSD,
		BillingCycle:       BillingMonthly,
		MaxSupportRequests: quota(50),
	},
	ClientEnterprise: {
		Name:               "Client Enterprise",
		Description:        "Everything in Client Pro with unlimited support requests.",
		PriceUSD:           EnterpriseThresholdUSD,
		BillingCycle:       BillingMonthly,
		MaxSupportRequests: nil,
	},
	Employee: {
		Name:               "Employee",
		Description:        "Staff access including client and prospect management.",
		PriceUSD:           0,
		BillingCycle:       BillingNone,
		MaxSupportRequests: nil,
	},
	Admin: {
		Name:               "Admin",
		Description:        "Unrestricted access to every dashboard.",
		PriceUSD:           0,
		BillingCycle:       BillingNone,
		MaxSupportRequests: nil,
	},
}

var dashboards = map[Tier][]Dashboard{
	Prospect:         {Rise},
	User:             {Rise, CoWork, Creative},
	ClientStarter:    {Rise, CoWork, Creative, Support},
	ClientPro:        {Rise, CoWork, Creative, Support},
	ClientEnterprise: {Rise, CoWork, Creative, Support},
	Employee:         {Rise, CoWork, Creative, Clients, Prospects, Support},
	Admin:            {Rise, CoWork, Creative, Clients, Prospects, Support, AdminDash},
}

var upgradePaths = map[Tier][]Tier{
	Prospect:         {User, ClientStarter},
	User:             {ClientStarter, ClientPro},
	ClientStarter:    {ClientPro, ClientEnterprise},
	ClientPro:        {ClientEnterprise},
	ClientEnterprise: {},
	Employee:         {},
	Admin:            {},
}

// Parse возвращает Tier по строковому идентификатору.
func Parse(s string) (Tier, bool) {
	t := Tier(s)
	_, ok := plans[t]
	return t, ok
}

// ParseDashboard возвращает Dashboard по строковому идентификатору.
func ParseDashboard(s string) (Dashboard, bool) {
	for _, d := range Dashboards() {
		if string(d) == s {
			return d, true
		}
	}
	return "", false
}

// Valid сообщает, известен ли уровень.
func (t Tier) Valid() bool {
	_, ok := plans[t]
	return ok
}

// PlanFor возвращает параметры тарифа. Для неизвестного уровня возвращается false.
func PlanFor(t Tier) (Plan, bool) {
	p, ok := plans[t]
	return p, ok
}

// DashboardsFor возвращает копию набора дашбордов уровня.
func DashboardsFor(t Tier) []Dashboard {
	src := dashboards[t]
	out := make([]Dashboard, len(src))
	copy(out, src)
	return out
}

// UpgradePath возвращает уровни, на которые можно перейти с текущего.
func UpgradePath(t Tier) []Tier {
	src := upgradePaths[t]
	out := make([]Tier, len(src))
	copy(out, src)
	return out
}

// Purchasable сообщает, можно ли перейти на уровень через оплату или назначение.
func (t Tier) Purchasable() bool {
	return t.Valid() && t != Prospect
}

// IsClient сообщает, относится ли уровень к клиентским тарифам.
func (t Tier) IsClient() bool {
	return t == ClientStarter || t == ClientPro || t == ClientEnterprise
}

// ForAmount подбирает тариф по сумме оплаты в долларах.
func ForAmount(amountUSD float64) Tier {
	switch {
	case amountUSD >= EnterpriseThresholdUSD:
		return ClientEnterprise
	case amountUSD >= ProThresholdUSD:
		return ClientPro
	case amountUSD >= StarterThresholdUSD:
		return ClientStarter
	default:
		return User
	}
}

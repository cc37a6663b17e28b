package simulator

import (
	"fmt"
	"math/rand"
	"strings"
	"time"
)

var clientNames = []string{"RAHUL K", "PRIYA S", "AMIT P", "NEHA M", "RAVI T", "SITA D", "KIRAN J", "MAYA R"}

const fillerData = "SOURCEPLATFORMBATCH20250130PROCESSORDERLOADSTATUSPENDINGCHECKSUM7C4A8D09TRADEDETAILSEXECUTIONVENUENYSEORDERTYPEMARKETLIMITPRICEVALIDATIONPASSEDRISKASSESSMENTLOWCLEARINGSETTLEMENTPENDINGCUSTODIANSERVICEACTIVECOUNTERPARTYBANKOFAMERICAREGULATORYSECCOMPLIANCEAPPROVEDAUDITTRAILCREATEDTIMESTAMP20250130111500BROKERCOMMISSION250TAXESCALCULATED150NETAMOUNT499600CURRENCYUSDEXCHANGERATENAPPLICABLEPORTFOLIOIDPF001STRATEGYGROWTHBENCHMARKSP500PERFORMANCEMETRICSTRACKINGACTIVEMANAGEMENTFEEANNUAL075EXPENSERATIOTOTAL125DIVIDENDPOLICYQUARTERLYREINVESTMENTAUTOMATICREBALANCINGMONTHLYRISKTOLERANCE ADDITIONALDATAPADDING"

// Generator produces synthetic fixed-width order records matching the
// upstream distributor feed layout: 766 characters ending with a pipe
// delimiter.
type Generator struct {
	rng *rand.Rand
}

func NewGenerator() *Generator {
	return &Generator{rng: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

func NewGeneratorWithSeed(seed int64) *Generator {
	return &Generator{rng: rand.New(rand.NewSource(seed))}
}

func (g *Generator) GenerateRandomOrders(count int) []string {
	orders := make([]string, 0, count)
	for i := 0; i < count; i++ {
		orders = append(orders, g.generateOrder())
	}
	return orders
}

func (g *Generator) generateOrder() string {
	var order strings.Builder

	// Pos 1: retail originator
	order.WriteString("0")

	// Pos 2-5: firm number, pos 6-9: fund number
	fmt.Fprintf(&order, "%04d", g.rng.Intn(20)+1)
	fmt.Fprintf(&order, "%04d", g.rng.Intn(20)+1)

	// Pos 10: buy/sell
	if g.rng.Intn(2) == 0 {
		order.WriteString("B")
	} else {
		order.WriteString("S")
	}

	// Pos 11-26: transaction id
	fmt.Fprintf(&order, "TXN%013d", g.rng.Int63n(1_000_000_000_000))

	// Pos 27-40: date/time ddMMyyyyHHmmss
	order.WriteString(time.Now().Format("02012006150405"))

	// Pos 41-56: amount
	fmt.Fprintf(&order, "%016d", int64(g.rng.Intn(999999)+10000))

	// Pos 57-76: account number
	fmt.Fprintf(&order, "ACCT%016d", g.rng.Int63n(10_000_000_000_000_000))

	// Pos 77-96: client name padded to 20
	fmt.Fprintf(&order, "%-20s", clientNames[g.rng.Intn(len(clientNames))])

	// Pos 97-105: SSN/PAN
	fmt.Fprintf(&order, "%09d", g.rng.Intn(999999999))

	// Pos 106-113: date of birth ddMMyyyy
	year := 1970 + g.rng.Intn(35)
	month := 1 + g.rng.Intn(12)
	day := 1 + g.rng.Intn(28)
	fmt.Fprintf(&order, "%02d%02d%d", day, month, year)

	// Pos 114-129: spacer
	order.WriteString(strings.Repeat(" ", 16))

	// Pos 130-765: filler trade data
	var filler strings.Builder
	for filler.Len() < 636 {
		filler.WriteString(fillerData)
	}
	order.WriteString(filler.String()[:636])

	// Pos 766: delimiter
	order.WriteString("|")

	return order.String()
}

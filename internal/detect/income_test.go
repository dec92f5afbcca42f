package detect

import (
	"testing"

	"github.com/stretchr/testify/require"

	"persona-engine/internal/signal"
	"persona-engine/internal/storage"
)

func payroll(day int, amount string) storage.Transaction {
	return txn(day, amount, "employer", storage.CategoryPayroll)
}

func TestIncomeEmptyInputAllInvalid(t *testing.T) {
	rec := NewIncome().Detect(dataset(t, nil, nil, false))

	for _, metric := range signal.DeclaredMetrics(signal.DetectorIncome) {
		require.False(t, rec.Valid[metric], "metric %s should be invalid", metric)
	}
}

func TestIncomeBiweeklyCadence(t *testing.T) {
	txns := []storage.Transaction{
		payroll(1, "2000"),
		payroll(15, "2000"),
		payroll(29, "2000"),
		txn(5, "-50", "cafe", "dining"),
	}

	rec := NewIncome().Detect(dataset(t, txns, nil, true))

	requireNumber(t, rec, signal.MetricIncomePayrollCount, "3")
	requireNumber(t, rec, signal.MetricIncomeMedianPayGapDays, "14")
	requireNumber(t, rec, signal.MetricIncomeMeanPayrollAmount, "2000")
	require.Equal(t, signal.CadenceBiweekly, rec.Values[signal.MetricIncomePayCadence].Category)
}

func TestIncomeSinglePayrollEventNoGapStats(t *testing.T) {
	txns := []storage.Transaction{payroll(10, "2500")}

	rec := NewIncome().Detect(dataset(t, txns, nil, true))

	requireNumber(t, rec, signal.MetricIncomePayrollCount, "1")
	requireNumber(t, rec, signal.MetricIncomeMeanPayrollAmount, "2500")
	require.False(t, rec.Valid[signal.MetricIncomeMedianPayGapDays],
		"fewer than 2 payroll events must leave gap stats at the insufficient-data fallback")
	require.False(t, rec.Valid[signal.MetricIncomePayCadence])
}

func TestIncomeNoPayrollTaggedInflows(t *testing.T) {
	txns := []storage.Transaction{
		txn(2, "300", "friend", "transfer"),
		txn(9, "-40", "cafe", "dining"),
	}

	rec := NewIncome().Detect(dataset(t, txns, nil, true))

	requireNumber(t, rec, signal.MetricIncomePayrollCount, "0")
	require.False(t, rec.Valid[signal.MetricIncomeMeanPayrollAmount])
}

func TestIncomeMedianWithEvenGapCount(t *testing.T) {
	txns := []storage.Transaction{
		payroll(1, "1000"),
		payroll(8, "1000"),
		payroll(22, "1000"),
	}

	rec := NewIncome().Detect(dataset(t, txns, nil, true))

	// Gaps 7 and 14; median is 10.5.
	requireNumber(t, rec, signal.MetricIncomeMedianPayGapDays, "10.5")
	require.Equal(t, signal.CadenceIrregular, rec.Values[signal.MetricIncomePayCadence].Category)
}

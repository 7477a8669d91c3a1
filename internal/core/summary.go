package core

// Total sums the amounts of the list in order. An empty list sums to zero.
func Total(expenses []Expense) float64 {
	var sum float64
	for _, e := range expenses {
		sum += e.Amount
	}
	return sum
}

// ShowTotal reports whether a total row should be rendered for the list.
func ShowTotal(expenses []Expense) bool {
	return len(expenses) > 0
}

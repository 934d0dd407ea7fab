package assertion

// Evaluator checks actual text against a Definition. It returns
// whether the assertion passed and a human-readable explanation.
type Evaluator func(def Definition, actual string) (bool, string)

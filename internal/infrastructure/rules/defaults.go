package rules

// defaultRules covers the folder taxonomy of a trustee practice. A
// rules file on disk overrides it entirely.
const defaultRules = `
rules:
  - folder: Tax Documents
    reason: tax form or assessment detected
    confidence: 0.85
    title_patterns:
      - '(?i)\bT4[A]?\b'
      - '(?i)notice of assessment'
    keywords:
      - notice of assessment
      - income tax return
      - taxation year
  - folder: Bank Statements
    reason: bank statement detected
    confidence: 0.8
    title_patterns:
      - '(?i)statement of account'
      - '(?i)bank statement'
    keywords:
      - opening balance
      - closing balance
      - account number
    min_keywords: 2
  - folder: Creditor Claims
    reason: proof of claim form detected
    confidence: 0.9
    title_patterns:
      - '(?i)form\s*31\b'
      - '(?i)proof of claim'
    keywords:
      - proof of claim
      - unsecured creditor
      - secured creditor
  - folder: Court Filings
    reason: court filing detected
    confidence: 0.75
    keywords:
      - court file
      - affidavit
      - order of discharge
    min_keywords: 2
  - folder: Income and Expenses
    reason: income and expense statement detected
    confidence: 0.7
    title_patterns:
      - '(?i)form\s*65\b'
    keywords:
      - monthly income
      - surplus income
      - household expenses
    min_keywords: 2
`

// Default builds a classifier from the built-in rule set.
func Default() *Classifier {
	classifier, err := Parse([]byte(defaultRules))
	if err != nil {
		panic("rules: invalid built-in rule set: " + err.Error())
	}
	return classifier
}

package repository

// Factory describes access to different domain repositories.
type Factory interface {
	Letters() LetterRepository
	Allowances() AllowanceRepository
	Audit() AuditRepository
}

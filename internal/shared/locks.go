package shared

// PromotionRolloverLockKey builds the redis key guarding the status rollover job.
func PromotionRolloverLockKey() string {
	return "promotions:rollover:lock"
}

package services

// User-facing DM and channel reply text. Terminal session paths send exactly
// one of these; operator diagnostics never leak into them.
const (
	msgSessionAlreadyActive = "⏳ You already have an active verification process. Please complete it first."
	msgInsufficientPerms    = "❌ Bot is missing required permissions. Please contact an administrator to:\n1. Ensure bot role is ABOVE the verified role\n2. Enable 'Manage Roles' permission for the bot"
	msgAlreadyVerified      = "✅ You are already verified in this server."
	msgEmailPrompt          = "📧 Please provide your email address for verification."
	msgEmailDeliveryFailed  = "❌ Failed to send verification email. Please try again later."
	msgCodeSent             = "✅ Verification code sent! Please check your email and reply with the 6-digit code."
	msgResponseTimeout      = "⏰ Verification timed out. Please use `.verify` again."
	msgVerified             = "🎉 Your email has been successfully verified! You now have access to all channels."
	msgVerificationFailed   = "❌ Verification failed. Please use `.verify` to try again or contact an administrator."
	msgNoActiveSession      = "❌ No active verification found. Please start with the `.verify` command."
	msgInternalError        = "❌ An error occurred. Please try again."
	msgWelcomePrompt        = "Welcome! Please verify your email address by using the `.verify` command in the server."
	msgAdminOnly            = "❌ You need the Administrator permission to use this command."
)

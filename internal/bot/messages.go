package bot

// User-facing texts, kept in one place so handlers stay readable.
const (
	msgWelcome = "🌐 Welcome to Free Subdomain Manager!\n" +
		"Available Commands:\n" +
		"/new - Claim a new subdomain\n" +
		"/delete - Remove your subdomain\n" +
		"/list - View your subdomains"

	msgPending     = "⏳ Your account is pending approval. Admins have been notified."
	msgNotApproved = "🔒 Your account is not approved yet."
	msgTryAgain    = "⚠️ Something went wrong. Please try again."

	msgSelectDomain   = "Select your domain:"
	msgNoZones        = "ℹ️ No domains are available right now."
	msgEnterSubdomain = "Enter your desired subdomain name (e.g., 'blog'):"
	msgInvalidLabel   = "❌ Invalid subdomain name. Use up to 63 letters, digits and hyphens, then try again:"
	msgTaken          = "❌ This subdomain is already taken!"
	msgCreated        = "✅ Success! Your subdomain is ready:\n%s"
	msgZoneGone       = "❌ That domain is no longer available."
	msgProviderError  = "❌ Error: %v"

	msgNoSubdomains = "ℹ️ You don't have any active subdomains"
	msgSelectDelete = "Select subdomain to delete:"
	msgNotFound     = "🚫 Subdomain not found!"
	msgDeleted      = "🗑️ Successfully deleted: %s"

	msgApproveUsage = "Invalid format. Use /approve USER_ID"
	msgApproved     = "✅ User %d approved"
	msgYouApproved  = "🎉 Your account has been approved!"

	msgAdminNewUser = "New user request:\nUser ID: %d"
)

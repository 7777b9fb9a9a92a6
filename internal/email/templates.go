package email

import (
	"fmt"
	"html"
	"time"
)

// MissedDoseAlertTemplate renders the caregiver alert for a missed dose.
func MissedDoseAlertTemplate(caregiverName, elderName, medicine string, scheduled time.Time) string {
	return fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <style>
        body { font-family: Arial, sans-serif; background-color: #f4f4f4; margin: 0; padding: 20px; }
        .container { max-width: 600px; margin: 0 auto; background-color: #ffffff; border-radius: 8px; overflow: hidden; box-shadow: 0 2px 4px rgba(0,0,0,0.1); }
        .header { background-color: #0F766E; color: white; padding: 20px; text-align: center; }
        .header h1 { margin: 0; font-size: 24px; }
        .content { padding: 30px; }
        .alert-box { background-color: #FFF3CD; border-left: 4px solid #D97706; padding: 15px; margin: 20px 0; }
        .footer { background-color: #f8f9fa; padding: 15px; text-align: center; font-size: 12px; color: #666; }
    </style>
</head>
<body>
    <div class="container">
        <div class="header">
            <h1>⚠️ Missed Dose</h1>
        </div>
        <div class="content">
            <p>Hi <strong>%s</strong>,</p>

            <div class="alert-box">
                <strong>%s</strong> has not confirmed <strong>%s</strong> scheduled for <strong>%s</strong>.
            </div>

            <p>Please check in with them. You can mark the dose as taken from the MediMinds dashboard if it was taken late.</p>
        </div>
        <div class="footer">
            <p>This is an automated message from MediMinds. Please do not reply.</p>
        </div>
    </div>
</body>
</html>
    `,
		html.EscapeString(caregiverName),
		html.EscapeString(elderName),
		html.EscapeString(medicine),
		scheduled.Format("02 Jan 2006 15:04"),
	)
}

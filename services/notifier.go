package services

import (
	"fmt"
	"log"

	"hospital-bulk-api/config"
	"hospital-bulk-api/models"
)

// BatchNotifier emails a short summary when a batch reaches a terminal
// status. Delivery is best-effort and never affects the batch outcome.
type BatchNotifier struct {
	to       string
	sendMail func(to []string, subject, html string) error
}

func NewBatchNotifier(settings config.Settings) *BatchNotifier {
	return &BatchNotifier{
		to:       settings.NotifyTo,
		sendMail: config.SendMail,
	}
}

// NotifyBatchFinished sends the summary email if a recipient is configured.
func (n *BatchNotifier) NotifyBatchFinished(batch *models.BatchUpload) {
	if n == nil || n.to == "" {
		return
	}

	subject := fmt.Sprintf("Hospital bulk upload %s: %s", batch.Status, batch.Filename)
	activation := "no"
	if batch.BatchActivated {
		activation = "yes"
	}
	html := fmt.Sprintf(
		`<p>Batch <code>%s</code> finished with status <strong>%s</strong>.</p>
<ul>
<li>File: %s</li>
<li>Total hospitals: %d</li>
<li>Processed: %d</li>
<li>Failed: %d</li>
<li>Activated: %s</li>
</ul>`,
		batch.BatchID, batch.Status, batch.Filename,
		batch.TotalHospitals, batch.ProcessedHospitals, batch.FailedHospitals,
		activation,
	)

	if err := n.sendMail([]string{n.to}, subject, html); err != nil {
		log.Printf("batch notifier: failed to send summary for %s: %v", batch.BatchID, err)
	}
}

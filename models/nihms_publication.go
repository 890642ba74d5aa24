package models

import (
	"fmt"
	"time"
)

// nihmsDateLayout ist das Datumsformat der NIHMS-CSV-Spalten (MM/dd/yyyy).
const nihmsDateLayout = "01/02/2006"

// NihmsPublication ist der flüchtige Schnappschuss einer CSV-Zeile aus dem
// NIHMS-Export. Er wird nie persistiert, sondern nur durch die
// Transform-Pipeline gereicht.
type NihmsPublication struct {
	Pmid        string
	GrantNumber string

	// Vorläufige bzw. endgültige externe IDs des Archivs.
	NihmsID string
	PmcID   string

	NihmsStatus NihmsStatus

	// Meilenstein-Daten des NIHMS-Lebenszyklus, Format MM/dd/yyyy.
	FileDepositedDate   string
	InitialApprovalDate string
	TaggingCompleteDate string
	FinalApprovalDate   string
}

// NewNihmsPublication validiert die Pflichtfelder einer CSV-Zeile und baut den
// Schnappschuss. Fehlermeldungen benennen Feld und Wert.
func NewNihmsPublication(status NihmsStatus, pmid, grantNumber, nihmsID, pmcID,
	fileDeposited, initialApproval, taggingComplete, finalApproval string) (*NihmsPublication, error) {

	if len(pmid) < 3 {
		return nil, fmt.Errorf("pmid %q is not valid", pmid)
	}
	if len(grantNumber) < 3 {
		return nil, fmt.Errorf("grant number %q is not valid", grantNumber)
	}
	if !status.Valid() {
		return nil, fmt.Errorf("nihms status %q is not valid", status)
	}
	return &NihmsPublication{
		Pmid:                pmid,
		GrantNumber:         grantNumber,
		NihmsID:             nihmsID,
		PmcID:               pmcID,
		NihmsStatus:         status,
		FileDepositedDate:   fileDeposited,
		InitialApprovalDate: initialApproval,
		TaggingCompleteDate: taggingComplete,
		FinalApprovalDate:   finalApproval,
	}, nil
}

// IsFileDeposited meldet, ob die Datei laut Export bereits hochgeladen wurde.
func (p *NihmsPublication) IsFileDeposited() bool {
	return p.FileDepositedDate != ""
}

// HasInitialApproval meldet, ob die Erstfreigabe erfolgt ist.
func (p *NihmsPublication) HasInitialApproval() bool {
	return p.InitialApprovalDate != ""
}

// IsTaggingComplete meldet, ob das Tagging abgeschlossen ist.
func (p *NihmsPublication) IsTaggingComplete() bool {
	return p.TaggingCompleteDate != ""
}

// HasFinalApproval meldet, ob die Endfreigabe erfolgt ist.
func (p *NihmsPublication) HasFinalApproval() bool {
	return p.FinalApprovalDate != ""
}

// ParseNihmsDate wandelt ein Datum im Format MM/dd/yyyy in eine time.Time um.
func ParseNihmsDate(value string) (time.Time, error) {
	t, err := time.Parse(nihmsDateLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("date %q is not in MM/dd/yyyy format: %w", value, err)
	}
	return t, nil
}

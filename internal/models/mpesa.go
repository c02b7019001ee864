package models

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// STKPushRequest is the provider's push-payment payload, field names and
// casing dictated by the wire contract.
type STKPushRequest struct {
	BusinessShortCode string `json:"BusinessShortCode"`
	Password          string `json:"Password"`
	Timestamp         string `json:"Timestamp"`
	TransactionType   string `json:"TransactionType"`
	Amount            int64  `json:"Amount"`
	PartyA            string `json:"PartyA"`
	PartyB            string `json:"PartyB"`
	PhoneNumber       string `json:"PhoneNumber"`
	CallBackURL       string `json:"CallBackURL"`
	AccountReference  string `json:"AccountReference"`
	TransactionDesc   string `json:"TransactionDesc"`
}

// STKPushResponse is the gateway's immediate acknowledgement. ResponseCode
// "0" means the push prompt was dispatched, not that money moved.
type STKPushResponse struct {
	MerchantRequestID   string `json:"MerchantRequestID"`
	CheckoutRequestID   string `json:"CheckoutRequestID"`
	ResponseCode        string `json:"ResponseCode"`
	ResponseDescription string `json:"ResponseDescription"`
	CustomerMessage     string `json:"CustomerMessage"`
}

func (r *STKPushResponse) Accepted() bool {
	return r.ResponseCode == "0"
}

// ReversalRequest mirrors the provider's reversal payload, including its
// misspelled RecieverIdentifierType field.
type ReversalRequest struct {
	Initiator              string `json:"Initiator"`
	SecurityCredential     string `json:"SecurityCredential"`
	CommandID              string `json:"CommandID"`
	TransactionID          string `json:"TransactionID"`
	Amount                 int64  `json:"Amount"`
	ReceiverParty          string `json:"ReceiverParty"`
	RecieverIdentifierType int    `json:"RecieverIdentifierType"`
	Remarks                string `json:"Remarks"`
	QueueTimeOutURL        string `json:"QueueTimeOutURL"`
	ResultURL              string `json:"ResultURL"`
}

type ReversalResponse struct {
	OriginatorConversationID string `json:"OriginatorConversationID"`
	ConversationID           string `json:"ConversationID"`
	ResponseCode             string `json:"ResponseCode"`
	ResponseDescription      string `json:"ResponseDescription"`
}

// CallbackEnvelope is the asynchronous POST the provider delivers once the
// payer has responded to the push prompt.
type CallbackEnvelope struct {
	Body struct {
		StkCallback StkCallback `json:"stkCallback"`
	} `json:"Body"`
}

type StkCallback struct {
	MerchantRequestID string           `json:"MerchantRequestID"`
	CheckoutRequestID string           `json:"CheckoutRequestID"`
	ResultCode        int              `json:"ResultCode"`
	ResultDesc        string           `json:"ResultDesc"`
	CallbackMetadata  CallbackMetadata `json:"CallbackMetadata"`
}

type CallbackMetadata struct {
	Item []CallbackItem `json:"Item"`
}

// CallbackItem values arrive untyped; Amount and TransactionDate come as
// numbers, MpesaReceiptNumber as a string, PhoneNumber as either.
type CallbackItem struct {
	Name  string          `json:"Name"`
	Value json.RawMessage `json:"Value"`
}

// CallbackDetails is the strongly typed view of the metadata item list.
type CallbackDetails struct {
	Amount        float64
	ReceiptNumber string
	// TransactionDate is the raw YYYYMMDDHHMMSS string; parsing into a
	// time.Time is the reconciler's job so a bad date fails the whole
	// reconciliation, not just the decode.
	TransactionDate string
	PhoneNumber     string
}

// Details extracts the four required metadata items by name. Items are
// matched by Name, never by position; a missing item is an error.
func (m CallbackMetadata) Details() (*CallbackDetails, error) {
	var (
		d     CallbackDetails
		found = map[string]bool{}
	)
	for _, item := range m.Item {
		switch item.Name {
		case "Amount":
			v, err := rawToFloat(item.Value)
			if err != nil {
				return nil, fmt.Errorf("metadata item Amount: %w", err)
			}
			d.Amount = v
			found["Amount"] = true
		case "MpesaReceiptNumber":
			d.ReceiptNumber = rawToString(item.Value)
			found["MpesaReceiptNumber"] = true
		case "TransactionDate":
			d.TransactionDate = rawToString(item.Value)
			found["TransactionDate"] = true
		case "PhoneNumber":
			d.PhoneNumber = rawToString(item.Value)
			found["PhoneNumber"] = true
		}
	}
	for _, name := range []string{"Amount", "MpesaReceiptNumber", "TransactionDate", "PhoneNumber"} {
		if !found[name] {
			return nil, fmt.Errorf("metadata item %s missing", name)
		}
	}
	return &d, nil
}

func rawToString(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return string(raw)
}

func rawToFloat(raw json.RawMessage) (float64, error) {
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strconv.ParseFloat(s, 64)
	}
	return 0, fmt.Errorf("value %q is not numeric", string(raw))
}

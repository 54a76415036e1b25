package v1

import (
	"time"

	"github.com/dmehra2102/prod-golang-projects/pharmaflow/internal/domain/prescription"
	"github.com/dmehra2102/prod-golang-projects/pharmaflow/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type PrescriptionHandler struct {
	verificationSvc *service.VerificationService
	codeSvc         *service.SecurityCodeService
}

func NewPrescriptionHandler(verificationSvc *service.VerificationService, codeSvc *service.SecurityCodeService) *PrescriptionHandler {
	return &PrescriptionHandler{verificationSvc: verificationSvc, codeSvc: codeSvc}
}

type uploadPrescriptionRequest struct {
	UserID      *uuid.UUID `json:"user_id"`
	DocumentURL string     `json:"document_url" binding:"required"`
	DoctorName  string     `json:"doctor_name"`
}

func (h *PrescriptionHandler) Upload(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	var req uploadPrescriptionRequest
	if !bindJSON(c, &req) {
		return
	}

	userID := actor.UserID
	if req.UserID != nil {
		userID = *req.UserID
	}

	p, err := h.verificationSvc.Upload(c.Request.Context(), &prescription.UploadPrescriptionCommand{
		UserID:      userID,
		DocumentURL: req.DocumentURL,
		DoctorName:  req.DoctorName,
	}, actor, c.ClientIP())
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondCreated(c, p)
}

func (h *PrescriptionHandler) Get(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	p, err := h.verificationSvc.GetPrescription(c.Request.Context(), id, actor)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondOK(c, p)
}

func (h *PrescriptionHandler) List(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}

	q := &prescription.ListPrescriptionsQuery{
		Page:     parseQueryInt(c, "page", 1),
		PageSize: parseQueryInt(c, "page_size", 20),
	}
	if raw := c.Query("status"); raw != "" {
		s := prescription.Status(raw)
		q.Status = &s
	}
	if raw := c.Query("verification_status"); raw != "" {
		v := prescription.VerificationStatus(raw)
		q.VerificationStatus = &v
	}

	paged, err := h.verificationSvc.ListPrescriptions(c.Request.Context(), q, actor)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondOK(c, paged)
}

type verifyPrescriptionRequest struct {
	Status             string     `json:"status" binding:"required"`
	VerificationMethod string     `json:"verification_method" binding:"required"`
	VerificationNotes  string     `json:"verification_notes"`
	ExpirationDate     *time.Time `json:"expiration_date"`
}

func (h *PrescriptionHandler) Verify(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	var req verifyPrescriptionRequest
	if !bindJSON(c, &req) {
		return
	}

	p, err := h.verificationSvc.Verify(c.Request.Context(), id, &prescription.VerifyCommand{
		Outcome:        prescription.VerificationStatus(req.Status),
		Method:         prescription.VerificationMethod(req.VerificationMethod),
		Notes:          req.VerificationNotes,
		ExpirationDate: req.ExpirationDate,
	}, actor, c.ClientIP())
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondOK(c, p)
}

type rejectPrescriptionRequest struct {
	Note string `json:"note" binding:"required"`
}

func (h *PrescriptionHandler) Reject(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	var req rejectPrescriptionRequest
	if !bindJSON(c, &req) {
		return
	}

	p, err := h.verificationSvc.Reject(c.Request.Context(), id, req.Note, actor, c.ClientIP())
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondOK(c, p)
}

type revokePrescriptionRequest struct {
	Reason string `json:"reason" binding:"required"`
}

func (h *PrescriptionHandler) Revoke(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	var req revokePrescriptionRequest
	if !bindJSON(c, &req) {
		return
	}

	p, err := h.verificationSvc.Revoke(c.Request.Context(), id, req.Reason, actor, c.ClientIP())
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondOK(c, p)
}

func (h *PrescriptionHandler) GenerateSecurityCode(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	code, err := h.codeSvc.Generate(c.Request.Context(), id, actor, c.ClientIP())
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondOK(c, gin.H{"security_code": code})
}

type validateCodeRequest struct {
	SecurityCode string `json:"security_code" binding:"required"`
}

func (h *PrescriptionHandler) ValidateSecurityCode(c *gin.Context) {
	if _, ok := mustActor(c); !ok {
		return
	}
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	var req validateCodeRequest
	if !bindJSON(c, &req) {
		return
	}

	valid, err := h.codeSvc.ValidateCode(c.Request.Context(), id, req.SecurityCode)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondOK(c, gin.H{"valid": valid})
}

func (h *PrescriptionHandler) ValidateForMedication(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	medicationID, ok := parseUUID(c, "medicationId")
	if !ok {
		return
	}

	result, err := h.verificationSvc.ValidateForMedication(c.Request.Context(), id, medicationID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondOK(c, result)
}

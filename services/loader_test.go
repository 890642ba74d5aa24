package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"nihms-bridge/models"
)

func TestLoadCreatesGraphAndLinksDeposit(t *testing.T) {
	cat := newFakeCatalog()
	cat.addGrant(testGrantURI, testAward, testPiURI)
	loader := NewSubmissionLoader(cat, zap.NewNop())

	dto := &models.SubmissionDTO{
		GrantURI:    testGrantURI,
		Publication: &models.Publication{Pmid: testPmid, Title: "New work"},
		Submission: &models.Submission{
			UserURI:      testPiURI,
			Repositories: []string{testRepoURI},
			Grants:       []string{testGrantURI},
			Source:       models.SourceOther,
		},
		RepositoryCopy: &models.RepositoryCopy{
			RepositoryURI: testRepoURI,
			ExternalIDs:   []string{"abcdefg"},
			CopyStatus:    models.CopyStatusAccepted,
		},
		Deposit: &models.Deposit{
			RepositoryURI: testRepoURI,
			Status:        models.DepositStatusReceived,
			AssignedID:    "abcdefg",
		},
	}

	outcome, err := loader.Load(dto)
	require.NoError(t, err)
	assert.True(t, outcome.CreatedPublication)
	assert.True(t, outcome.CreatedSubmission)
	assert.True(t, outcome.CreatedRepositoryCopy)
	assert.True(t, outcome.CreatedDeposit)

	require.NotEmpty(t, dto.Publication.URI)
	require.NotEmpty(t, dto.Submission.URI)
	require.NotEmpty(t, dto.Deposit.URI)

	// Zweite Phase: Deposit zeigt auf die Submission, die Submission listet ihn.
	assert.Equal(t, dto.Submission.URI, dto.Deposit.SubmissionURI)
	stored := cat.submissions[dto.Submission.URI]
	require.NotNil(t, stored)
	assert.Contains(t, stored.Deposits, dto.Deposit.URI)
	assert.Equal(t, dto.Publication.URI, stored.PublicationURI)

	storedCopy := cat.repoCopies[dto.RepositoryCopy.URI]
	require.NotNil(t, storedCopy)
	assert.Equal(t, dto.Publication.URI, storedCopy.PublicationURI)

	grant := cat.grants[testGrantURI]
	assert.Contains(t, grant.Submissions, dto.Submission.URI)
}

func TestLoadRejectsIncompleteDTO(t *testing.T) {
	loader := NewSubmissionLoader(newFakeCatalog(), zap.NewNop())

	_, err := loader.Load(nil)
	require.ErrorIs(t, err, ErrIncompleteDTO)

	_, err = loader.Load(&models.SubmissionDTO{GrantURI: testGrantURI})
	require.ErrorIs(t, err, ErrIncompleteDTO)

	_, err = loader.Load(&models.SubmissionDTO{
		Submission:  &models.Submission{},
		Publication: &models.Publication{},
	})
	require.ErrorIs(t, err, ErrIncompleteDTO)
}

func TestLoadFailsWhenGrantDisappears(t *testing.T) {
	cat := newFakeCatalog()
	loader := NewSubmissionLoader(cat, zap.NewNop())

	dto := &models.SubmissionDTO{
		GrantURI:    "https://pass.local/fcrepo/rest/grants/999",
		Publication: &models.Publication{Pmid: testPmid},
		Submission:  &models.Submission{UserURI: testPiURI},
	}

	_, err := loader.Load(dto)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disappeared")
}

// Der komplette Durchlauf aus Transform und Load muss idempotent sein: der
// zweite Lauf mit demselben Datensatz legt nichts Neues an.
func TestTransformAndLoadAreIdempotent(t *testing.T) {
	cat := newFakeCatalog()
	cat.addGrant(testGrantURI, testAward, testPiURI)
	tr := newTestTransformer(cat, defaultResolver())
	loader := NewSubmissionLoader(cat, zap.NewNop())

	pub := nihmsPub(t, models.NihmsStatusInProcess, "abcdefg", "", "12/12/2018", "", "", "")

	dto, err := tr.Transform(pub)
	require.NoError(t, err)
	outcome, err := loader.Load(dto)
	require.NoError(t, err)
	assert.True(t, outcome.CreatedSubmission)

	pubCount := len(cat.publications)
	subCount := len(cat.submissions)
	copyCount := len(cat.repoCopies)
	depCount := len(cat.deposits)

	dto2, err := tr.Transform(pub)
	require.NoError(t, err)
	outcome2, err := loader.Load(dto2)
	require.NoError(t, err)

	assert.False(t, outcome2.CreatedPublication)
	assert.False(t, outcome2.CreatedSubmission)
	assert.False(t, outcome2.CreatedRepositoryCopy)
	assert.False(t, outcome2.CreatedDeposit)

	assert.Equal(t, pubCount, len(cat.publications))
	assert.Equal(t, subCount, len(cat.submissions))
	assert.Equal(t, copyCount, len(cat.repoCopies))
	assert.Equal(t, depCount, len(cat.deposits))

	grant := cat.grants[testGrantURI]
	assert.Len(t, grant.Submissions, 1)
	stored := cat.submissions[dto2.Submission.URI]
	assert.Len(t, stored.Deposits, 1)
}

package services

import (
	"fmt"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"nihms-bridge/config"
	"nihms-bridge/models"
	"nihms-bridge/providers"
)

const (
	testRepoURI  = "https://pass.local/fcrepo/rest/repositories/nihms"
	testGrantURI = "https://pass.local/fcrepo/rest/grants/1"
	testPiURI    = "https://pass.local/fcrepo/rest/users/55"

	testPmid  = "12345678"
	testAward = "A12 BC000001"
)

// fakeCatalog ist ein In-Memory-Ersatz für den Katalog-Service.
type fakeCatalog struct {
	grants       map[string]*models.Grant
	publications map[string]*models.Publication
	submissions  map[string]*models.Submission
	repoCopies   map[string]*models.RepositoryCopy
	deposits     map[string]*models.Deposit
	journals     map[string]string

	nextID  int
	updates []string
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{
		grants:       map[string]*models.Grant{},
		publications: map[string]*models.Publication{},
		submissions:  map[string]*models.Submission{},
		repoCopies:   map[string]*models.RepositoryCopy{},
		deposits:     map[string]*models.Deposit{},
		journals:     map[string]string{},
	}
}

func (f *fakeCatalog) newURI(kind string) string {
	f.nextID++
	return fmt.Sprintf("https://pass.local/fcrepo/rest/%s/%d", kind, f.nextID)
}

func cloneGrant(g *models.Grant) *models.Grant {
	c := *g
	c.Submissions = slices.Clone(g.Submissions)
	return &c
}

func cloneSubmission(s *models.Submission) *models.Submission {
	c := *s
	c.Repositories = slices.Clone(s.Repositories)
	c.Grants = slices.Clone(s.Grants)
	c.Deposits = slices.Clone(s.Deposits)
	return &c
}

func cloneRepoCopy(r *models.RepositoryCopy) *models.RepositoryCopy {
	c := *r
	c.ExternalIDs = slices.Clone(r.ExternalIDs)
	return &c
}

func (f *fakeCatalog) FindGrantByAwardNumber(awardNumber string) (string, error) {
	for uri, g := range f.grants {
		if g.AwardNumber == awardNumber {
			return uri, nil
		}
	}
	return "", nil
}

func (f *fakeCatalog) ReadGrant(uri string) (*models.Grant, error) {
	if g, ok := f.grants[uri]; ok {
		return cloneGrant(g), nil
	}
	return nil, nil
}

func (f *fakeCatalog) UpdateGrant(grant *models.Grant) error {
	f.grants[grant.URI] = cloneGrant(grant)
	f.updates = append(f.updates, grant.URI)
	return nil
}

func (f *fakeCatalog) FindPublicationByIDs(pmid, doi string) (*models.Publication, error) {
	for _, p := range f.publications {
		if p.Pmid == pmid {
			c := *p
			return &c, nil
		}
	}
	if doi != "" {
		for _, p := range f.publications {
			if p.Doi == doi {
				c := *p
				return &c, nil
			}
		}
	}
	return nil, nil
}

func (f *fakeCatalog) FindJournalByIssn(issn string) (string, error) {
	return f.journals[issn], nil
}

func (f *fakeCatalog) CreatePublication(publication *models.Publication) (string, error) {
	uri := f.newURI("publications")
	publication.URI = uri
	c := *publication
	f.publications[uri] = &c
	return uri, nil
}

func (f *fakeCatalog) UpdatePublication(publication *models.Publication) error {
	c := *publication
	f.publications[publication.URI] = &c
	f.updates = append(f.updates, publication.URI)
	return nil
}

func (f *fakeCatalog) FindRepositoryCopyByRepoAndPub(repositoryURI, publicationURI string) (*models.RepositoryCopy, error) {
	for _, r := range f.repoCopies {
		if r.RepositoryURI == repositoryURI && r.PublicationURI == publicationURI {
			return cloneRepoCopy(r), nil
		}
	}
	return nil, nil
}

func (f *fakeCatalog) CreateRepositoryCopy(repoCopy *models.RepositoryCopy) (string, error) {
	uri := f.newURI("repositoryCopies")
	repoCopy.URI = uri
	f.repoCopies[uri] = cloneRepoCopy(repoCopy)
	return uri, nil
}

func (f *fakeCatalog) UpdateRepositoryCopy(repoCopy *models.RepositoryCopy) error {
	f.repoCopies[repoCopy.URI] = cloneRepoCopy(repoCopy)
	f.updates = append(f.updates, repoCopy.URI)
	return nil
}

func (f *fakeCatalog) FindSubmissionsByPublicationAndUser(publicationURI, userURI string) ([]*models.Submission, error) {
	var uris []string
	for uri, s := range f.submissions {
		if s.PublicationURI == publicationURI && s.UserURI == userURI {
			uris = append(uris, uri)
		}
	}
	slices.Sort(uris)
	var result []*models.Submission
	for _, uri := range uris {
		result = append(result, cloneSubmission(f.submissions[uri]))
	}
	return result, nil
}

func (f *fakeCatalog) CreateSubmission(submission *models.Submission) (string, error) {
	uri := f.newURI("submissions")
	submission.URI = uri
	f.submissions[uri] = cloneSubmission(submission)
	return uri, nil
}

func (f *fakeCatalog) UpdateSubmission(submission *models.Submission) error {
	f.submissions[submission.URI] = cloneSubmission(submission)
	f.updates = append(f.updates, submission.URI)
	return nil
}

func (f *fakeCatalog) FindDepositBySubmissionAndRepository(submissionURI, repositoryURI string) (*models.Deposit, error) {
	for _, d := range f.deposits {
		if d.SubmissionURI == submissionURI && d.RepositoryURI == repositoryURI {
			c := *d
			return &c, nil
		}
	}
	return nil, nil
}

func (f *fakeCatalog) ReadDeposit(uri string) (*models.Deposit, error) {
	if d, ok := f.deposits[uri]; ok {
		c := *d
		return &c, nil
	}
	return nil, nil
}

func (f *fakeCatalog) CreateDeposit(deposit *models.Deposit) (string, error) {
	uri := f.newURI("deposits")
	deposit.URI = uri
	c := *deposit
	f.deposits[uri] = &c
	return uri, nil
}

func (f *fakeCatalog) UpdateDeposit(deposit *models.Deposit) error {
	c := *deposit
	f.deposits[deposit.URI] = &c
	f.updates = append(f.updates, deposit.URI)
	return nil
}

func (f *fakeCatalog) addGrant(uri, awardNumber, piURI string) {
	f.grants[uri] = &models.Grant{URI: uri, AwardNumber: awardNumber, PiURI: piURI}
}

// fakeResolver liefert vorab hinterlegte Metadaten.
type fakeResolver struct {
	records map[string]*providers.PubMedRecord
}

func (f *fakeResolver) Lookup(pmid string) (*providers.PubMedRecord, error) {
	return f.records[pmid], nil
}

func (f *fakeResolver) Name() string { return "fake" }

func testConfig() *config.Config {
	return &config.Config{
		NihmsRepositoryURI: testRepoURI,
		PmcURLTemplate:     "https://www.ncbi.nlm.nih.gov/pmc/articles/%s/",
	}
}

func newTestTransformer(cat *fakeCatalog, resolver providers.MetadataResolver) *SubmissionTransformer {
	return NewSubmissionTransformer(cat, resolver, nil, testConfig(), zap.NewNop())
}

func defaultResolver() *fakeResolver {
	return &fakeResolver{records: map[string]*providers.PubMedRecord{
		testPmid: {
			Pmid:  testPmid,
			Title: "Longitudinal outcomes in murine models",
			Doi:   "https://doi.org/10.1000/example.2018",
			Issn:  "1234-5678",
		},
	}}
}

func nihmsPub(t *testing.T, status models.NihmsStatus, nihmsID, pmcID, fileDeposited, initialApproval, taggingComplete, finalApproval string) *models.NihmsPublication {
	t.Helper()
	pub, err := models.NewNihmsPublication(status, testPmid, testAward, nihmsID, pmcID,
		fileDeposited, initialApproval, taggingComplete, finalApproval)
	require.NoError(t, err)
	return pub
}

func TestTransformBuildsFullGraphForNewRecord(t *testing.T) {
	cat := newFakeCatalog()
	cat.addGrant(testGrantURI, testAward, testPiURI)
	tr := newTestTransformer(cat, defaultResolver())

	pub := nihmsPub(t, models.NihmsStatusInProcess, "abcdefg", "", "12/12/2018", "", "", "")

	dto, err := tr.Transform(pub)
	require.NoError(t, err)
	require.NotNil(t, dto)

	assert.Equal(t, testGrantURI, dto.GrantURI)

	require.NotNil(t, dto.Publication)
	assert.Empty(t, dto.Publication.URI)
	assert.Equal(t, testPmid, dto.Publication.Pmid)
	assert.Equal(t, "https://doi.org/10.1000/example.2018", dto.Publication.Doi)
	assert.Equal(t, "Longitudinal outcomes in murine models", dto.Publication.Title)

	require.NotNil(t, dto.RepositoryCopy)
	assert.Equal(t, []string{"abcdefg"}, dto.RepositoryCopy.ExternalIDs)
	assert.Equal(t, models.CopyStatusAccepted, dto.RepositoryCopy.CopyStatus)
	assert.Empty(t, dto.RepositoryCopy.AccessURL)

	require.NotNil(t, dto.Submission)
	assert.True(t, dto.Submission.Submitted)
	assert.Equal(t, models.SourceOther, dto.Submission.Source)
	require.NotNil(t, dto.Submission.SubmittedDate)
	assert.Equal(t, "2018-12-12", dto.Submission.SubmittedDate.Format("2006-01-02"))
	assert.Equal(t, []string{testGrantURI}, dto.Submission.Grants)
	assert.Equal(t, []string{testRepoURI}, dto.Submission.Repositories)
	assert.Equal(t, testPiURI, dto.Submission.UserURI)

	require.NotNil(t, dto.Deposit)
	assert.Equal(t, models.DepositStatusReceived, dto.Deposit.Status)
	assert.Equal(t, "abcdefg", dto.Deposit.AssignedID)
	assert.False(t, dto.Deposit.UserActionRequired)
}

// Ein Non-Compliant-Datensatz mit hochgeladener Datei ist genau der Fall, für
// den das User-Action-Flag existiert — auch wenn der Deposit erst jetzt
// angelegt wird.
func TestTransformNewDepositCarriesUserActionFlag(t *testing.T) {
	cat := newFakeCatalog()
	cat.addGrant(testGrantURI, testAward, testPiURI)
	tr := newTestTransformer(cat, defaultResolver())

	pub := nihmsPub(t, models.NihmsStatusNonCompliant, "abcdefg", "", "12/12/2018", "", "", "")

	dto, err := tr.Transform(pub)
	require.NoError(t, err)

	require.NotNil(t, dto.Deposit)
	assert.Empty(t, dto.Deposit.URI)
	assert.True(t, dto.Deposit.UserActionRequired)
	assert.Equal(t, models.DepositStatusReceived, dto.Deposit.Status)
}

// Die PMCID kommt aus manchen Exporten ohne "PMC"-Präfix; die accessUrl muss
// trotzdem die Präfix-Form tragen.
func TestTransformNormalizesBarePmcIDInAccessURL(t *testing.T) {
	cat := newFakeCatalog()
	cat.addGrant(testGrantURI, testAward, testPiURI)
	tr := newTestTransformer(cat, defaultResolver())

	pub := nihmsPub(t, models.NihmsStatusCompliant, "abcdefg", "9876543",
		"12/12/2018", "01/02/2019", "02/02/2019", "03/02/2019")

	dto, err := tr.Transform(pub)
	require.NoError(t, err)

	require.NotNil(t, dto.RepositoryCopy)
	assert.Equal(t, "https://www.ncbi.nlm.nih.gov/pmc/articles/PMC9876543/", dto.RepositoryCopy.AccessURL)
	require.NotNil(t, dto.Deposit)
	assert.Equal(t, "https://www.ncbi.nlm.nih.gov/pmc/articles/PMC9876543/", dto.Deposit.AccessURL)
	// Die externe ID selbst bleibt, wie der Export sie liefert.
	assert.Equal(t, "9876543", dto.Deposit.AssignedID)
	assert.Contains(t, dto.RepositoryCopy.ExternalIDs, "9876543")
}

func TestTransformNoRepositoryCopyWithoutExternalID(t *testing.T) {
	cat := newFakeCatalog()
	cat.addGrant(testGrantURI, testAward, testPiURI)
	tr := newTestTransformer(cat, defaultResolver())

	pub := nihmsPub(t, models.NihmsStatusNonCompliant, "", "", "", "", "", "")

	dto, err := tr.Transform(pub)
	require.NoError(t, err)

	assert.Nil(t, dto.RepositoryCopy)
	assert.Nil(t, dto.Deposit)
	require.NotNil(t, dto.Submission)
	assert.False(t, dto.Submission.Submitted)
}

func TestTransformCompliantRecordReachesTerminalState(t *testing.T) {
	cat := newFakeCatalog()
	cat.addGrant(testGrantURI, testAward, testPiURI)

	pubURI := "https://pass.local/fcrepo/rest/publications/10"
	cat.publications[pubURI] = &models.Publication{URI: pubURI, Pmid: testPmid, Title: "Existing"}

	subURI := "https://pass.local/fcrepo/rest/submissions/11"
	cat.submissions[subURI] = &models.Submission{
		URI:            subURI,
		PublicationURI: pubURI,
		UserURI:        testPiURI,
		Repositories:   []string{testRepoURI},
		Grants:         []string{testGrantURI},
		Submitted:      true,
		Source:         models.SourceOther,
		Deposits:       []string{"https://pass.local/fcrepo/rest/deposits/12"},
	}
	cat.repoCopies["https://pass.local/fcrepo/rest/repositoryCopies/13"] = &models.RepositoryCopy{
		URI:            "https://pass.local/fcrepo/rest/repositoryCopies/13",
		RepositoryURI:  testRepoURI,
		PublicationURI: pubURI,
		ExternalIDs:    []string{"abcdefg"},
		CopyStatus:     models.CopyStatusInProgress,
	}
	cat.deposits["https://pass.local/fcrepo/rest/deposits/12"] = &models.Deposit{
		URI:           "https://pass.local/fcrepo/rest/deposits/12",
		SubmissionURI: subURI,
		RepositoryURI: testRepoURI,
		AssignedID:    "abcdefg",
		Status:        models.DepositStatusInProgress,
	}

	tr := newTestTransformer(cat, defaultResolver())
	pub := nihmsPub(t, models.NihmsStatusCompliant, "abcdefg", "PMC9876543",
		"12/12/2018", "01/02/2019", "02/02/2019", "03/02/2019")

	dto, err := tr.Transform(pub)
	require.NoError(t, err)

	require.NotNil(t, dto.RepositoryCopy)
	assert.Equal(t, models.CopyStatusComplete, dto.RepositoryCopy.CopyStatus)
	assert.Equal(t, []string{"PMC9876543", "abcdefg"}, dto.RepositoryCopy.ExternalIDs)
	assert.Equal(t, "https://www.ncbi.nlm.nih.gov/pmc/articles/PMC9876543/", dto.RepositoryCopy.AccessURL)

	require.NotNil(t, dto.Deposit)
	assert.Equal(t, models.DepositStatusAccepted, dto.Deposit.Status)
	assert.Equal(t, "PMC9876543", dto.Deposit.AssignedID)
	assert.Equal(t, "https://www.ncbi.nlm.nih.gov/pmc/articles/PMC9876543/", dto.Deposit.AccessURL)

	assert.Equal(t, subURI, dto.Submission.URI)
	assert.True(t, dto.Submission.Submitted)
}

func TestTransformFailsWithoutMatchingGrant(t *testing.T) {
	cat := newFakeCatalog()
	tr := newTestTransformer(cat, defaultResolver())

	pub := nihmsPub(t, models.NihmsStatusInProcess, "abcdefg", "", "", "", "", "")

	_, err := tr.Transform(pub)
	require.ErrorIs(t, err, ErrNoMatchingGrant)
	assert.Contains(t, err.Error(), testAward)
	assert.Contains(t, err.Error(), testPmid)
}

func TestTransformFailsWithoutPublicationMetadata(t *testing.T) {
	cat := newFakeCatalog()
	cat.addGrant(testGrantURI, testAward, testPiURI)
	tr := newTestTransformer(cat, &fakeResolver{records: map[string]*providers.PubMedRecord{}})

	pub := nihmsPub(t, models.NihmsStatusInProcess, "abcdefg", "", "", "", "", "")

	_, err := tr.Transform(pub)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no metadata")
}

func TestTransformAmbiguousNihmsSubmissionsFail(t *testing.T) {
	cat := newFakeCatalog()
	cat.addGrant(testGrantURI, testAward, testPiURI)

	pubURI := "https://pass.local/fcrepo/rest/publications/10"
	cat.publications[pubURI] = &models.Publication{URI: pubURI, Pmid: testPmid}
	for _, subURI := range []string{
		"https://pass.local/fcrepo/rest/submissions/11",
		"https://pass.local/fcrepo/rest/submissions/12",
	} {
		cat.submissions[subURI] = &models.Submission{
			URI:            subURI,
			PublicationURI: pubURI,
			UserURI:        testPiURI,
			Repositories:   []string{testRepoURI},
		}
	}

	tr := newTestTransformer(cat, defaultResolver())
	pub := nihmsPub(t, models.NihmsStatusInProcess, "abcdefg", "", "", "", "", "")

	_, err := tr.Transform(pub)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "both reference the NIHMS repository")
}

func TestTransformAdoptsUnsubmittedCandidate(t *testing.T) {
	cat := newFakeCatalog()
	cat.addGrant(testGrantURI, testAward, testPiURI)

	pubURI := "https://pass.local/fcrepo/rest/publications/10"
	cat.publications[pubURI] = &models.Publication{URI: pubURI, Pmid: testPmid}

	// Kandidat ohne NIHMS-Repository, noch nicht abgeschickt
	otherRepo := "https://pass.local/fcrepo/rest/repositories/other"
	thirdRepo := "https://pass.local/fcrepo/rest/repositories/third"
	subURI := "https://pass.local/fcrepo/rest/submissions/11"
	cat.submissions[subURI] = &models.Submission{
		URI:            subURI,
		PublicationURI: pubURI,
		UserURI:        testPiURI,
		Repositories:   []string{otherRepo, thirdRepo},
		Grants:         []string{testGrantURI},
	}

	tr := newTestTransformer(cat, defaultResolver())
	pub := nihmsPub(t, models.NihmsStatusInProcess, "abcdefg", "", "", "", "", "")

	dto, err := tr.Transform(pub)
	require.NoError(t, err)

	assert.Equal(t, subURI, dto.Submission.URI)
	// Mehr als ein Repository: submitted bleibt trotz RepositoryCopy false.
	assert.False(t, dto.Submission.Submitted)
}

func TestTransformAppendsGrantExactlyOnce(t *testing.T) {
	cat := newFakeCatalog()
	cat.addGrant(testGrantURI, testAward, testPiURI)
	secondGrantURI := "https://pass.local/fcrepo/rest/grants/2"

	pubURI := "https://pass.local/fcrepo/rest/publications/10"
	cat.publications[pubURI] = &models.Publication{URI: pubURI, Pmid: testPmid}
	subURI := "https://pass.local/fcrepo/rest/submissions/11"
	cat.submissions[subURI] = &models.Submission{
		URI:            subURI,
		PublicationURI: pubURI,
		UserURI:        testPiURI,
		Repositories:   []string{testRepoURI},
		Grants:         []string{secondGrantURI, testGrantURI},
		Submitted:      true,
	}

	tr := newTestTransformer(cat, defaultResolver())
	pub := nihmsPub(t, models.NihmsStatusNonCompliant, "", "", "", "", "", "")

	dto, err := tr.Transform(pub)
	require.NoError(t, err)
	assert.Equal(t, []string{secondGrantURI, testGrantURI}, dto.Submission.Grants)
}

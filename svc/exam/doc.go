// Package exam grades multiple choice exams and issues course certificates.
//
// Learners must be enrolled and still hold a subscription covering the
// course to read or submit an exam. The score is round(100 * correct /
// questions) and passes at the exam's passing score. A passing attempt on a
// completed course issues one certificate per learner and course, numbered
// LP-<year>-<8 hex>, and emails it when a mailer is configured.
//
// Certificates are public: VerifyCertificate and CertificateQR need only the
// number.
package exam
